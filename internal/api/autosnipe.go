package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/wnt/mevx/internal/autosnipe"
	"github.com/wnt/mevx/internal/models"
)

type tokenToggleResponse struct {
	TokenID       string `json:"tokenId"`
	WalletAddress string `json:"walletAddress"`
	IsActive      bool   `json:"isActive"`
}

// walletFor returns the wallet named by the request, falling back to the
// connected session
func (s *Server) walletFor(r *http.Request) string {
	if wallet := strings.TrimSpace(r.URL.Query().Get("wallet")); wallet != "" {
		return wallet
	}
	return s.sessions.Current().WalletAddress
}

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	wallet := s.walletFor(r)
	activeOnly := r.URL.Query().Get("active") == "true"

	var configs []models.AutoSnipeConfig
	switch {
	case r.URL.Query().Get("all") == "true":
		configs = s.autosnipe.AllConfigs()
	case activeOnly:
		configs = s.autosnipe.GetActiveConfigs(wallet)
	default:
		configs = s.autosnipe.GetUserConfigs(wallet)
	}
	writeJSON(w, http.StatusOK, configs)
}

// handleAddConfig fills omitted parameters with the form defaults and binds
// the configuration to the connected wallet unless the body names one
func (s *Server) handleAddConfig(w http.ResponseWriter, r *http.Request) {
	cfg := models.DefaultAutoSnipeConfig()
	if err := decodeBody(w, r, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if cfg.WalletAddress == "" {
		cfg.WalletAddress = s.sessions.Current().WalletAddress
	}
	if cfg.UserID == "" && cfg.WalletAddress != "" {
		if user, ok := s.users.GetUserByWallet(cfg.WalletAddress); ok {
			cfg.UserID = user.ID
		}
	}

	created, err := s.autosnipe.AddConfig(r.Context(), cfg)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.autosnipe.GetConfig(chi.URLParam(r, "id"))
	if !ok {
		s.writeFailure(w, r, autosnipe.ErrConfigNotFound)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// handleClearConfigs drops every configuration held on this device
func (s *Server) handleClearConfigs(w http.ResponseWriter, r *http.Request) {
	s.autosnipe.ClearUserData(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg models.AutoSnipeConfig
	if err := decodeBody(w, r, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cfg.ID = chi.URLParam(r, "id")

	updated, err := s.autosnipe.UpdateConfig(r.Context(), cfg)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.autosnipe.DeleteConfig(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.autosnipe.ToggleConfig(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.autosnipe.AutoSnipingTokens(s.walletFor(r)))
}

func (s *Server) handleTokenStatus(w http.ResponseWriter, r *http.Request) {
	tokenID := chi.URLParam(r, "tokenId")
	wallet := s.walletFor(r)
	writeJSON(w, http.StatusOK, tokenToggleResponse{
		TokenID:       tokenID,
		WalletAddress: wallet,
		IsActive:      s.autosnipe.IsAutoSniping(tokenID, wallet),
	})
}

func (s *Server) handleToggleToken(w http.ResponseWriter, r *http.Request) {
	tokenID := chi.URLParam(r, "tokenId")
	wallet := s.walletFor(r)

	active, err := s.autosnipe.ToggleAutoSnipe(r.Context(), tokenID, wallet)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenToggleResponse{
		TokenID:       tokenID,
		WalletAddress: wallet,
		IsActive:      active,
	})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.autosnipe.Activity())
}
