package http

import (
	"net/http"

	"formship-quiz-service/internal/domain"
	"github.com/go-chi/chi/v5"
)

type credentialsRequest struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	Password    string `json:"password"`
	AccountName string `json:"account_name"`
}

type participantAuthResponse struct {
	Token         string `json:"token"`
	ParticipantID string `json:"participant_id"`
}

type accountAuthResponse struct {
	Token     string `json:"token"`
	UserID    string `json:"user_id"`
	AccountID string `json:"account_id,omitempty"`
}

type meResponse struct {
	Participant domain.Participant  `json:"participant"`
	State       domain.SessionState `json:"state"`
}

func (h *Handler) registerParticipant(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	res, err := h.svc.Participants.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, participantAuthResponse{Token: res.Token, ParticipantID: res.Participant.ID})
}

func (h *Handler) loginParticipant(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	res, err := h.svc.Participants.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, participantAuthResponse{Token: res.Token, ParticipantID: res.Participant.ID})
}

func (h *Handler) logoutParticipant(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, r, h.logger, domain.Unauthorized("participant token required", nil))
		return
	}
	if err := h.svc.Participants.Logout(r.Context(), token); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func currentParticipant(r *http.Request) (domain.Participant, error) {
	p, ok := domain.ParticipantOf(requesterFrom(r.Context()))
	if !ok {
		return domain.Participant{}, domain.Unauthorized("participant token required", nil)
	}
	return p, nil
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	p, err := currentParticipant(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{Participant: p, State: domain.StateOf(p)})
}

func (h *Handler) deleteMe(w http.ResponseWriter, r *http.Request) {
	p, err := currentParticipant(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.svc.Participants.Delete(r.Context(), p.ID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) myParticipations(w http.ResponseWriter, r *http.Request) {
	p, err := currentParticipant(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	rows, err := h.svc.Participants.Participations(r.Context(), p.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) registerAccount(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	res, err := h.svc.Accounts.Register(r.Context(), req.Email, req.Name, req.Password, req.AccountName)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, accountAuthResponse{Token: res.Token, UserID: res.User.ID, AccountID: res.AccountID})
}

func (h *Handler) loginAccount(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	res, err := h.svc.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, accountAuthResponse{Token: res.Token, UserID: res.User.ID})
}

type memberRequest struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

func (h *Handler) addMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	m, err := h.svc.Accounts.AddMember(r.Context(), requesterFrom(r.Context()), chi.URLParam(r, "accountID"), req.Email, req.Role)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
