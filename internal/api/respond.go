package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wnt/mevx/internal/autosnipe"
	"github.com/wnt/mevx/internal/credential"
	"github.com/wnt/mevx/internal/guard"
	"github.com/wnt/mevx/internal/users"
	"github.com/wnt/mevx/internal/wallet"
)

// envelope is the body of every JSON response
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Error: msg})
}

// writeFailure maps a store or decoder error to its HTTP status
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var (
		configErr  *autosnipe.ValidationError
		connectErr *wallet.ValidationError
		decodeErr  *credential.DecodeError
		balanceErr *guard.InsufficientBalanceError
	)

	body := envelope{Error: err.Error()}
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, users.ErrUserNotFound), errors.Is(err, autosnipe.ErrConfigNotFound):
		status = http.StatusNotFound
	case errors.Is(err, users.ErrWalletAddressRequired), errors.Is(err, users.ErrNegativeBalance):
		status = http.StatusBadRequest
	case errors.As(err, &configErr):
		status = http.StatusBadRequest
		body.Field = configErr.Field
		body.Error = configErr.Message
	case errors.As(err, &connectErr):
		status = http.StatusBadRequest
		body.Field = connectErr.Field
		body.Error = connectErr.Message
	case errors.As(err, &decodeErr):
		status = http.StatusBadRequest
	case errors.As(err, &balanceErr):
		status = http.StatusPaymentRequired
	}

	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		body.Error = "internal error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
