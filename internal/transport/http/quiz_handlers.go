package http

import (
	"net/http"
	"time"

	"formship-quiz-service/internal/app"
	"formship-quiz-service/internal/domain"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) checkAccess(w http.ResponseWriter, r *http.Request) {
	decision, err := h.svc.Quizzes.CheckAccess(r.Context(), chi.URLParam(r, "quizID"), requesterFrom(r.Context()), r.URL.Query().Get("email"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	// denials are a normal answer here, not an error
	writeJSON(w, http.StatusOK, decision)
}

type passwordRequest struct {
	Password string `json:"password"`
}

func (h *Handler) verifyPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	err := h.svc.Quizzes.VerifyPassword(r.Context(), chi.URLParam(r, "quizID"), req.Password)
	if err != nil && domain.KindOf(err) == domain.KindForbidden {
		writeJSON(w, http.StatusOK, domain.Deny(domain.ActionOf(err), publicMessage(err)))
		return
	}
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.Allow())
}

type joinRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (h *Handler) join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	res, err := h.svc.Quizzes.Join(r.Context(), chi.URLParam(r, "quizID"), requesterFrom(r.Context()), app.JoinRequest{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	status := http.StatusOK
	if res.Token != "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

type answerTiming struct {
	StartedAt  *time.Time `json:"startedAt"`
	AnsweredAt *time.Time `json:"answeredAt"`
}

type submitRequest struct {
	Answers       map[string]string       `json:"answers"`
	AnswerTimings map[string]answerTiming `json:"answerTimings"`
	StartedAt     *time.Time              `json:"startedAt"`
	Duration      *int                    `json:"duration"`
	Email         string                  `json:"email"`
	Password      string                  `json:"password"`
}

func (req submitRequest) toSubmission() app.Submission {
	answers := make(map[string]app.Answer, len(req.Answers))
	for qid, value := range req.Answers {
		a := app.Answer{Value: value}
		if t, ok := req.AnswerTimings[qid]; ok {
			a.StartedAt = t.StartedAt
			a.AnsweredAt = t.AnsweredAt
		}
		answers[qid] = a
	}
	return app.Submission{Answers: answers, StartedAt: req.StartedAt, DurationSeconds: req.Duration}
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	res, err := h.svc.Quizzes.Submit(r.Context(), chi.URLParam(r, "quizID"), requesterFrom(r.Context()), app.SubmitRequest{
		Submission: req.toSubmission(),
		Email:      req.Email,
		Password:   req.Password,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) quizDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.Quizzes.Detail(r.Context(), chi.URLParam(r, "quizID"), requesterFrom(r.Context()),
		r.URL.Query().Get("email"), r.Header.Get("X-Quiz-Password"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) createQuiz(w http.ResponseWriter, r *http.Request) {
	var req app.CreateQuizRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	quiz, questions, err := h.svc.Catalog.CreateQuiz(r.Context(), requesterFrom(r.Context()), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, app.QuizDetail{Quiz: quiz, Questions: questions})
}

func (h *Handler) setPublished(published bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quiz, err := h.svc.Catalog.SetPublished(r.Context(), requesterFrom(r.Context()), chi.URLParam(r, "quizID"), published)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, quiz)
	}
}

func (h *Handler) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Catalog.DeleteQuiz(r.Context(), requesterFrom(r.Context()), chi.URLParam(r, "quizID")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) quizParticipations(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.Catalog.Participations(r.Context(), requesterFrom(r.Context()), chi.URLParam(r, "quizID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

type inviteRequest struct {
	Emails []string `json:"emails"`
}

func (h *Handler) invite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	res, err := h.svc.Invitations.Invite(r.Context(), requesterFrom(r.Context()), chi.URLParam(r, "quizID"), req.Emails)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) listInvitations(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Invitations.List(r.Context(), requesterFrom(r.Context()), chi.URLParam(r, "quizID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) deactivateInvitation(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Invitations.Deactivate(r.Context(), requesterFrom(r.Context()), chi.URLParam(r, "quizID"), chi.URLParam(r, "email"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
