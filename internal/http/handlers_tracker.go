package http

import (
	"net/http"

	applog "savetrack/internal/log"
)

type pageData struct {
	Form       formView
	Eval       evaluationView
	History    historyView
	Currency   string
	HasHistory bool
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := SessionID(ctx)

	state, err := s.svc.Defaults(ctx, sid)
	if err != nil {
		s.writeError(w, r, applog.OpRender, err)
		return
	}
	snap, err := s.svc.Evaluate(ctx, sid, state)
	if err != nil {
		s.writeError(w, r, applog.OpEvaluate, err)
		return
	}
	hv, n, err := s.historyView(r)
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}

	data := pageData{
		Form: formView{
			Goal:          state.Goal.String(),
			MonthlyTarget: state.MonthlyTarget.String(),
			Current:       state.Current.String(),
			Step:          s.svc.InputStep().String(),
		},
		Eval:       newEvaluationView(snap, s.svc.Scale()),
		History:    hv,
		Currency:   s.svc.Currency(),
		HasHistory: n > 0,
	}
	s.render(w, r, NewHTMXResponse(), "index.html", data)
}

// handleEvaluate recomputes the progress, meter and happiness partial on
// every input change.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format.").Write(w)
		return
	}
	state, err := ParseStateForm(r.PostForm)
	if err != nil {
		s.writeError(w, r, applog.OpEvaluate, err)
		return
	}
	snap, err := s.svc.Evaluate(r.Context(), SessionID(r.Context()), state)
	if err != nil {
		s.writeError(w, r, applog.OpEvaluate, err)
		return
	}
	s.render(w, r, NewHTMXResponse(), "evaluation.html", newEvaluationView(snap, s.svc.Scale()))
}
