package api

import (
	"net/http"

	"github.com/wnt/mevx/internal/guard"
	"github.com/wnt/mevx/internal/models"
	"github.com/wnt/mevx/internal/wallet"
)

type sessionResponse struct {
	Session       models.WalletSession `json:"session"`
	BalanceStatus guard.BalanceStatus  `json:"balanceStatus"`
	User          *models.User         `json:"user,omitempty"`
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req wallet.Request
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.connector.Connect(r.Context(), req)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.connector.Disconnect(r.Context()))
}

// handleSessionBalance sets the displayed platform balance of the session
func (s *Server) handleSessionBalance(w http.ResponseWriter, r *http.Request) {
	var req balanceRequest
	if err := decodeBody(w, r, &req); err != nil || req.Balance == nil {
		writeError(w, http.StatusBadRequest, "balance is required")
		return
	}
	if req.Balance.IsNegative() {
		writeError(w, http.StatusBadRequest, "balance must not be negative")
		return
	}
	if !s.sessions.Current().IsConnected {
		writeError(w, http.StatusConflict, "no wallet connected")
		return
	}

	writeJSON(w, http.StatusOK, s.sessions.SetBalance(r.Context(), *req.Balance))
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	session := s.sessions.Current()
	resp := sessionResponse{
		Session:       session,
		BalanceStatus: guard.Status(session.Balance, s.minimum),
	}
	if user, ok := s.users.CurrentUser(); ok && session.IsConnected {
		resp.User = &user
	}
	writeJSON(w, http.StatusOK, resp)
}
