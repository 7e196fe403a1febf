package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	apperrors "github.com/ivanoskov/wallet_sessions/internal/errors"
	"github.com/ivanoskov/wallet_sessions/internal/model"
	"github.com/ivanoskov/wallet_sessions/internal/service"
)

type createSessionRequest struct {
	Session      model.Session          `json:"session"`
	Participants []model.NewParticipant `json:"participants"`
}

type walletRequest struct {
	WalletAddress string `json:"walletAddress"`
}

type errorResponse struct {
	Code     apperrors.Code    `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	session, err := a.service.CreateSession(r.Context(), req.Session, req.Participants)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (a *API) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := a.service.ListSessionsByWallet(r.Context(), mux.Vars(r)["wallet"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (a *API) handleJoinSession(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if !decodeBody(w, r, &req) {
		return
	}

	participant, err := a.service.JoinSession(r.Context(), mux.Vars(r)["session_id"], req.WalletAddress)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, participant)
}

func (a *API) handleActivateSession(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if !decodeBody(w, r, &req) {
		return
	}

	session, err := a.service.ActivateSession(r.Context(), mux.Vars(r)["session_id"], req.WalletAddress)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (a *API) handleSessionDetails(w http.ResponseWriter, r *http.Request) {
	details, err := a.service.GetSessionDetails(r.Context(), mux.Vars(r)["session_id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// handleSessionChart renders ?kind=share (default), timeline or balance.
func (a *API) handleSessionChart(w http.ResponseWriter, r *http.Request) {
	var render func(*service.SessionReport) ([]byte, error)
	switch kind := r.URL.Query().Get("kind"); kind {
	case "", "share":
		render = a.charts.GenerateSpendingShare
	case "timeline":
		render = a.charts.GenerateSpendingTimeline
	case "balance":
		render = a.charts.GenerateParticipantBalance
	default:
		writeError(w, r, apperrors.WithMetadata(apperrors.CodeInvalidArgument, "unknown chart kind",
			map[string]string{"kind": kind}))
		return
	}

	details, err := a.service.GetSessionDetails(r.Context(), mux.Vars(r)["session_id"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	img, err := render(service.BuildReport(details))
	if err != nil {
		slog.Error("Failed to render chart", "request_id", requestID(r.Context()), "error", err)
		writeError(w, r, err)
		return
	}
	if img == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(img)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid request body", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps err to its HTTP status. Causes are logged, never returned.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		appErr = apperrors.Wrap(apperrors.CodeUnknown, "internal error", err)
	}

	status := appErr.Code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed",
			"request_id", requestID(r.Context()),
			"code", appErr.Code,
			"error", err,
		)
	}

	writeJSON(w, status, errorResponse{
		Code:     appErr.Code,
		Message:  appErr.Message,
		Metadata: appErr.Metadata,
	})
}
