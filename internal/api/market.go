package api

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wnt/mevx/internal/guard"
)

type priceResponse struct {
	SolPrice    float64   `json:"solPrice"`
	LastUpdated time.Time `json:"lastUpdated"`
	IsLoading   bool      `json:"isLoading"`
	Error       string    `json:"error,omitempty"`
}

type checkRequest struct {
	Balance   decimal.Decimal  `json:"balance"`
	Required  *decimal.Decimal `json:"required"`
	Operation string           `json:"operation"`
}

type guardResponse struct {
	Validation guard.Validation    `json:"validation"`
	Status     guard.BalanceStatus `json:"status"`
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	sample := s.oracle.Sample()
	writeJSON(w, http.StatusOK, priceResponse{
		SolPrice:    sample.SolPrice,
		LastUpdated: sample.LastUpdated,
		IsLoading:   s.oracle.IsLoading(),
		Error:       s.oracle.Error(),
	})
}

// handleGuard validates balance against required, which defaults to the
// configured minimum
func (s *Server) handleGuard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	balance, err := decimal.NewFromString(q.Get("balance"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "balance must be a number")
		return
	}

	required := s.minimum
	if raw := q.Get("required"); raw != "" {
		required, err = decimal.NewFromString(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "required must be a number")
			return
		}
	}

	writeJSON(w, http.StatusOK, guardResponse{
		Validation: guard.ValidateBalance(balance, required),
		Status:     guard.Status(balance, s.minimum),
	})
}

// handleGuardCheck answers 402 when balance does not cover the operation
func (s *Server) handleGuardCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	required := s.minimum
	if req.Required != nil {
		required = *req.Required
	}
	if req.Operation == "" {
		req.Operation = "continue"
	}

	if err := guard.Check(req.Balance, required, req.Operation); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, guard.ValidateBalance(req.Balance, required))
}
