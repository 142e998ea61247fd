package http

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"savetrack/internal/history"
	applog "savetrack/internal/log"
)

func (s *Server) historyView(r *http.Request) (historyView, int, error) {
	ctx := r.Context()
	entries, err := s.svc.History(ctx, SessionID(ctx))
	if err != nil {
		return historyView{}, 0, err
	}
	return newHistoryView(entries, s.svc.Scale().Trend(entries), s.svc.Scale()), len(entries), nil
}

func (s *Server) handleHistoryPartial(w http.ResponseWriter, r *http.Request) {
	hv, _, err := s.historyView(r)
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	s.render(w, r, NewHTMXResponse(), "history.html", hv)
}

func statusHTML(msg string) string {
	return `<div class="success" role="status">` + template.HTMLEscapeString(msg) + `</div>`
}

func (s *Server) handleSaveEntry(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format.").Write(w)
		return
	}
	state, err := ParseStateForm(r.PostForm)
	if err != nil {
		s.writeError(w, r, applog.OpSave, err)
		return
	}

	ctx := r.Context()
	sid := SessionID(ctx)
	e, err := s.svc.SaveEntry(ctx, sid, state)
	if err != nil {
		s.writeError(w, r, applog.OpSave, err)
		return
	}
	s.entriesSaved.Add(1)
	s.structured.LogEntrySaved(ctx, sid, e.ID, e.Goal.Cents, e.MonthlyTarget.Cents, e.CurrentSaved.Cents)

	NewHTMXResponse().
		TriggerEntrySaved(e.ID).
		TriggerSuccessNotification("Entry saved").
		BodyHTML(statusHTML("Entry saved in your private session! 🙌")).
		Write(w)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, err := parseEntryID(r)
	if err != nil {
		BadRequestError("Invalid entry.").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format.").Write(w)
		return
	}
	state, err := ParseStateForm(r.PostForm)
	if err != nil {
		s.writeError(w, r, applog.OpUpdate, err)
		return
	}
	ts, err := ParseTimestampForm(r.PostForm, time.Now().UTC())
	if err != nil {
		s.writeError(w, r, applog.OpUpdate, err)
		return
	}

	ctx := r.Context()
	if _, err := s.svc.UpdateEntry(ctx, SessionID(ctx), id, state, ts); err != nil {
		s.writeError(w, r, applog.OpUpdate, err)
		return
	}
	NewHTMXResponse().
		TriggerHistoryChanged(1).
		BodyHTML(statusHTML("Session history updated.")).
		Write(w)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := parseEntryID(r)
	if err != nil {
		BadRequestError("Invalid entry.").Write(w)
		return
	}
	ctx := r.Context()
	if err := s.svc.DeleteEntry(ctx, SessionID(ctx), id); err != nil {
		s.writeError(w, r, applog.OpDelete, err)
		return
	}
	NewHTMXResponse().
		TriggerHistoryChanged(1).
		BodyHTML(statusHTML("Entry deleted.")).
		Write(w)
}

// handleUpload merges an uploaded CSV into the session's history.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tooLarge := TooLargeError(fmt.Sprintf("The file is larger than %d KB.", max(s.maxUpload/1024, 1)))
	if r.ContentLength > s.maxUpload {
		tooLarge.Write(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			tooLarge.Write(w)
			return
		}
		BadRequestError("Choose a CSV file to upload.").Write(w)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile(fieldUpload)
	if err != nil {
		BadRequestError("Choose a CSV file to upload.").Write(w)
		return
	}
	defer file.Close()

	uploaded, err := history.ReadEntries(file)
	if err != nil {
		applog.FromContext(ctx).InfoContext(ctx, "Rejected history upload", applog.FieldError, err.Error())
		UnprocessableEntityError("Failed to merge uploaded history: " + err.Error()).Write(w)
		return
	}

	res, err := s.svc.MergeHistory(ctx, SessionID(ctx), uploaded)
	if err != nil {
		s.writeError(w, r, applog.OpUpload, err)
		return
	}
	s.historyMerges.Add(1)

	resp := NewHTMXResponse().TriggerHistoryChanged(res.Kept)
	if res.Added == 0 && res.Updated == 0 {
		resp.TriggerNotification(NotificationInfo, "The upload had no new readings.", 3000)
	} else {
		resp.TriggerSuccessNotification(fmt.Sprintf("%d readings added, %d updated", res.Added, res.Updated))
	}
	resp.BodyHTML(statusHTML(fmt.Sprintf("History merged into your session! %d rows, %d added.", res.Kept, res.Added))).
		Write(w)
}

func exportName(ext string) string {
	return fmt.Sprintf("savetrack-history-%s.%s", time.Now().UTC().Format("20060102"), ext)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := s.svc.History(ctx, SessionID(ctx))
	if err != nil {
		s.writeError(w, r, applog.OpExport, err)
		return
	}
	var buf bytes.Buffer
	if err := history.WriteEntries(&buf, entries); err != nil {
		s.writeError(w, r, applog.OpExport, err)
		return
	}
	NewHTMXResponse().
		Header("Content-Type", "text/csv; charset=utf-8").
		Header("Content-Disposition", `attachment; filename="`+exportName("csv")+`"`).
		Body(buf.Bytes()).
		Write(w)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := s.svc.History(ctx, SessionID(ctx))
	if err != nil {
		s.writeError(w, r, applog.OpExport, err)
		return
	}
	var buf bytes.Buffer
	if err := history.WriteXLSX(&buf, entries); err != nil {
		s.writeError(w, r, applog.OpExport, err)
		return
	}
	NewHTMXResponse().
		Header("Content-Type", history.XLSXContentType).
		Header("Content-Disposition", `attachment; filename="`+exportName("xlsx")+`"`).
		Body(buf.Bytes()).
		Write(w)
}
