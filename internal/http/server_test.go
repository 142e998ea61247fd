package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"savetrack/internal/cache"
	"savetrack/internal/history"
	applog "savetrack/internal/log"
	"savetrack/internal/memory"
	"savetrack/internal/services"
)

type testServer struct {
	*Server
	cookie *http.Cookie
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	store := cache.NewHistoryStore(memory.New(), 16, time.Minute)
	now := time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)
	svc := services.NewSavingsService(store, nil, services.WithClock(func() time.Time { return now }))

	opts.Logger = applog.New(applog.Config{Output: io.Discard})
	opts.Cache = store
	srv, err := NewServer(":0", svc, opts)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{Server: srv}
}

// do sends r with the session cookie of earlier responses.
func (ts *testServer) do(r *http.Request) *httptest.ResponseRecorder {
	if ts.cookie != nil {
		r.AddCookie(ts.cookie)
	}
	rr := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, r)
	for _, c := range rr.Result().Cookies() {
		if c.Name == "savetrack_session" {
			ts.cookie = c
		}
	}
	return rr
}

func form(method, path string, v url.Values) *http.Request {
	r := httptest.NewRequest(method, path, strings.NewReader(v.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func upload(t *testing.T, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("history", "history.csv")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte(content))
	_ = mw.Close()
	r := httptest.NewRequest(http.MethodPost, "/history/upload", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestIndexAndHealth(t *testing.T) {
	ts := newTestServer(t, Options{})

	rr := ts.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{"Savings Progress Tracker", `value="6000.00"`, `value="3000.00"`, "No entries yet"} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}
	if ts.cookie == nil {
		t.Fatal("expected a session cookie")
	}
	if rr.Header().Get("Content-Security-Policy") == "" || rr.Header().Get(traceHeader) == "" {
		t.Error("expected security and request ID headers")
	}

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/static/app.css"} {
		rr := ts.do(httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Errorf("%s status=%d", path, rr.Code)
		}
	}
}

const traceHeader = "X-Request-ID"

func TestIndexShowsThisMonthsReading(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.do(form(http.MethodPost, "/entries", url.Values{"goal": {"6000"}, "monthly_target": {"3000"}, "current_saved": {"1500"}}))

	rr := ts.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `value="1500.00"`) {
		t.Errorf("index should prefill the saved reading:\n%s", body)
	}
	if !strings.Contains(body, "25.0%") {
		t.Errorf("index should evaluate the saved reading:\n%s", body)
	}
}

func TestReadyReportsStoreFailure(t *testing.T) {
	ts := newTestServer(t, Options{Ready: func(context.Context) error { return errors.New("database is locked") }})
	rr := ts.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "database is locked") {
		t.Fatalf("body=%s", rr.Body.String())
	}
}

func TestEvaluate(t *testing.T) {
	ts := newTestServer(t, Options{})

	tests := []struct {
		name       string
		values     url.Values
		wantStatus int
		wantBody   []string
	}{
		{
			name:       "halfway",
			values:     url.Values{"goal": {"6000"}, "monthly_target": {"3000"}, "current_saved": {"3000"}},
			wantStatus: http.StatusOK,
			wantBody:   []string{"50.0%", "ZAR 3,000", "hit or exceeded"},
		},
		{
			name:       "goal exceeded",
			values:     url.Values{"goal": {"6000"}, "monthly_target": {"3000"}, "current_saved": {"7000"}},
			wantStatus: http.StatusOK,
			wantBody:   []string{"100.0%", "ZAR 0"},
		},
		{
			name:       "savings grew",
			values:     url.Values{"goal": {"6000"}, "current_saved": {"2500"}, "previous_month": {"2000"}},
			wantStatus: http.StatusOK,
			wantBody:   []string{"(6/10)", "Compared with last month: up."},
		},
		{
			name:       "savings fell",
			values:     url.Values{"goal": {"6000"}, "current_saved": {"2000"}, "previous_month": {"2500"}},
			wantStatus: http.StatusOK,
			wantBody:   []string{"(4/10)", "Compared with last month: down."},
		},
		{
			name:       "zero goal",
			values:     url.Values{"goal": {"0"}, "current_saved": {"10"}},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   []string{"greater than zero", "re-enter"},
		},
		{
			name:       "not a number",
			values:     url.Values{"goal": {"6000"}, "current_saved": {"ten"}},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   []string{"Amount saved must be a number"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(form(http.MethodPost, "/ui/evaluate", tt.values))
			if rr.Code != tt.wantStatus {
				t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
			}
			for _, want := range tt.wantBody {
				if !strings.Contains(rr.Body.String(), want) {
					t.Errorf("body missing %q: %s", want, rr.Body.String())
				}
			}
		})
	}
}

func TestSaveEditDeleteAndExport(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.do(httptest.NewRequest(http.MethodGet, "/", nil))

	rr := ts.do(form(http.MethodPost, "/entries", url.Values{"goal": {"6000"}, "monthly_target": {"3000"}, "current_saved": {"1500"}}))
	if rr.Code != http.StatusOK {
		t.Fatalf("save status=%d body=%s", rr.Code, rr.Body.String())
	}
	if trigger := rr.Header().Get("HX-Trigger"); !strings.Contains(trigger, `"entry:saved":{"id":1}`) ||
		!strings.Contains(trigger, `"message":"Entry saved"`) {
		t.Fatalf("HX-Trigger=%q", trigger)
	}

	rr = ts.do(httptest.NewRequest(http.MethodGet, "/ui/history", nil))
	if !strings.Contains(rr.Body.String(), `id="entry-1"`) || !strings.Contains(rr.Body.String(), "<polyline") {
		t.Fatalf("history partial missing row: %s", rr.Body.String())
	}

	rr = ts.do(form(http.MethodPut, "/entries/1", url.Values{
		"goal": {"6000"}, "monthly_target": {"3000"}, "current_saved": {"2000"}, "timestamp": {"2025-03-01T10:00:00"},
	}))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Header().Get("HX-Trigger"), "history:changed") {
		t.Fatalf("update status=%d trigger=%q", rr.Code, rr.Header().Get("HX-Trigger"))
	}

	rr = ts.do(httptest.NewRequest(http.MethodGet, "/history/export.csv", nil))
	if rr.Code != http.StatusOK || !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("export status=%d type=%q", rr.Code, rr.Header().Get("Content-Type"))
	}
	entries, err := history.ReadEntries(rr.Body)
	if err != nil {
		t.Fatalf("exported CSV does not read back: %v", err)
	}
	if len(entries) != 1 || entries[0].CurrentSaved.String() != "2000.00" || entries[0].Timestamp.Day() != 1 {
		t.Fatalf("unexpected exported entries %+v", entries)
	}

	rr = ts.do(httptest.NewRequest(http.MethodGet, "/history/export.xlsx", nil))
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != history.XLSXContentType || rr.Body.Len() == 0 {
		t.Fatalf("xlsx status=%d type=%q", rr.Code, rr.Header().Get("Content-Type"))
	}

	rr = ts.do(httptest.NewRequest(http.MethodDelete, "/entries/1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status=%d", rr.Code)
	}
	rr = ts.do(httptest.NewRequest(http.MethodDelete, "/entries/1", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d", rr.Code)
	}
}

func TestUpdateRejectsInvalidInput(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.do(form(http.MethodPost, "/entries", url.Values{"goal": {"100"}, "current_saved": {"10"}}))

	rr := ts.do(form(http.MethodPost, "/entries/1", url.Values{"goal": {"100"}, "timestamp": {"someday"}}))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d", rr.Code)
	}
	rr = ts.do(form(http.MethodPut, "/entries/99", url.Values{"goal": {"100"}}))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing entry status=%d", rr.Code)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.do(form(http.MethodPost, "/entries", url.Values{"goal": {"100"}, "current_saved": {"10"}}))

	other := &testServer{Server: ts.Server}
	rr := other.do(httptest.NewRequest(http.MethodGet, "/ui/history", nil))
	if !strings.Contains(rr.Body.String(), "No entries yet") {
		t.Fatalf("another session sees foreign history: %s", rr.Body.String())
	}
	rr = other.do(httptest.NewRequest(http.MethodDelete, "/entries/1", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("deleting another session's entry: status=%d", rr.Code)
	}
}

func TestUploadMergesHistory(t *testing.T) {
	ts := newTestServer(t, Options{})
	csv := strings.Join([]string{
		"timestamp,goal,monthly_target,current_saved",
		"2025-01-31 20:00:00,6000,3000,2000",
		"2025-02-28 20:00:00,6000,3000,2500",
		"2025-02-28 20:00:00,6000,3000,2500",
	}, "\n")

	rr := ts.do(upload(t, csv))
	if rr.Code != http.StatusOK {
		t.Fatalf("upload status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "2 rows, 2 added") {
		t.Fatalf("body=%s", rr.Body.String())
	}
	if trigger := rr.Header().Get("HX-Trigger"); !strings.Contains(trigger, "2 readings added, 0 updated") {
		t.Fatalf("HX-Trigger=%q", trigger)
	}

	rr = ts.do(upload(t, csv))
	if trigger := rr.Header().Get("HX-Trigger"); !strings.Contains(trigger, `"type":"info"`) {
		t.Fatalf("re-upload HX-Trigger=%q", trigger)
	}

	// February grew on January, so this month starts from a happier score.
	rr = ts.do(form(http.MethodPost, "/ui/evaluate", url.Values{"goal": {"6000"}, "current_saved": {"2600"}}))
	if !strings.Contains(rr.Body.String(), "(7/10)") {
		t.Fatalf("expected score built from uploaded history: %s", rr.Body.String())
	}

	rr = ts.do(upload(t, "timestamp,goal\n2025-01-01,6000\n"))
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "current_saved") {
		t.Fatalf("bad upload status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestUploadTooLarge(t *testing.T) {
	ts := newTestServer(t, Options{MaxUploadBytes: 64})
	rr := ts.do(upload(t, "timestamp,goal,current_saved\n"+strings.Repeat("2025-01-01,6000,1\n", 20)))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestRateLimitAppliesToWrites(t *testing.T) {
	ts := newTestServer(t, Options{RateLimitPerMinute: 2})
	v := url.Values{"goal": {"6000"}, "current_saved": {"1"}}
	for i := 0; i < 2; i++ {
		if rr := ts.do(form(http.MethodPost, "/entries", v)); rr.Code != http.StatusOK {
			t.Fatalf("request %d status=%d", i, rr.Code)
		}
	}
	rr := ts.do(form(http.MethodPost, "/entries", v))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d", rr.Code)
	}
	if trigger := rr.Header().Get("HX-Trigger"); !strings.Contains(trigger, `"type":"warning"`) {
		t.Fatalf("HX-Trigger=%q", trigger)
	}
	if rr := ts.do(httptest.NewRequest(http.MethodGet, "/", nil)); rr.Code != http.StatusOK {
		t.Fatalf("GET should not be limited: %d", rr.Code)
	}
}

func TestEvaluateIsNotRateLimited(t *testing.T) {
	ts := newTestServer(t, Options{RateLimitPerMinute: 2})
	v := url.Values{"goal": {"6000"}, "current_saved": {"1"}}
	for i := 0; i < 10; i++ {
		if rr := ts.do(form(http.MethodPost, "/ui/evaluate", v)); rr.Code != http.StatusOK {
			t.Fatalf("request %d status=%d", i, rr.Code)
		}
	}
	if rr := ts.do(form(http.MethodPost, "/entries", v)); rr.Code != http.StatusOK {
		t.Fatalf("evaluations should not use the write budget: %d", rr.Code)
	}
}

func TestMetricsReportCounters(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.do(form(http.MethodPost, "/entries", url.Values{"goal": {"100"}, "current_saved": {"10"}}))
	ts.do(httptest.NewRequest(http.MethodGet, "/.env", nil))

	rr := ts.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()
	for _, want := range []string{
		"savetrack_entries_saved_total 1",
		"suspicious_requests_total 1",
		"history_cache_entries",
		"http_requests_total " + strconv.Itoa(2),
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, Options{})
	rr := ts.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rr.Code)
	}
}
