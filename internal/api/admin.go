package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/wnt/mevx/internal/models"
	"github.com/wnt/mevx/internal/users"
)

type balanceRequest struct {
	Balance *decimal.Decimal `json:"balance"`
}

type kycRequest struct {
	Status models.KYCStatus `json:"status"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.users.Stats(s.autosnipe.AllConfigs()))
}

// handleReload replaces the user cache with the directory contents
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.users.LoadUsers(r.Context()); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"users": len(s.users.GetAllUsers())})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, s.users.Search(q.Get("q"), q.Get("status")))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, ok := s.users.GetUser(chi.URLParam(r, "id"))
	if !ok {
		s.writeFailure(w, r, users.ErrUserNotFound)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var patch users.Patch
	if err := decodeBody(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.users.UpdateUser(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateBalance(w http.ResponseWriter, r *http.Request) {
	var req balanceRequest
	if err := decodeBody(w, r, &req); err != nil || req.Balance == nil {
		writeError(w, http.StatusBadRequest, "balance is required")
		return
	}

	user, err := s.users.UpdateUserBalance(r.Context(), chi.URLParam(r, "id"), *req.Balance)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleToggleStatus(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.ToggleUserStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleToggleVip(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.ToggleVipStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleSetKYC(w http.ResponseWriter, r *http.Request) {
	var req kycRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	switch req.Status {
	case models.KYCPending, models.KYCVerified, models.KYCRejected:
	default:
		writeError(w, http.StatusBadRequest, "status must be one of pending, verified, rejected")
		return
	}

	user, err := s.users.SetKYCStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleConnections lists the connection audit of the user's wallet
func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	user, ok := s.users.GetUser(chi.URLParam(r, "id"))
	if !ok {
		s.writeFailure(w, r, users.ErrUserNotFound)
		return
	}
	if s.audit == nil {
		writeJSON(w, http.StatusOK, []models.WalletConnection{})
		return
	}

	conns, err := s.audit.Connections(r.Context(), user.WalletAddress)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "connection audit unavailable")
		return
	}
	writeJSON(w, http.StatusOK, conns)
}

// handleDeleteUser removes the user only. Configurations owned by the
// wallet are left in place.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.users.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
