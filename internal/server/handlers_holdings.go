package server

import (
	"net/http"

	"github.com/finfolio/finfolio/internal/services/quote"
)

// handleHoldingAcquire handles POST /api/holdings — record a buy, folding
// it into the position's weighted average cost.
func (s *Server) handleHoldingAcquire(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req struct {
		Symbol   string  `json:"symbol"`
		Quantity float64 `json:"quantity"`
		Price    float64 `json:"price"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	sym, err := quote.ValidateSymbol(req.Symbol)
	if err != nil {
		WriteLedgerError(w, err)
		return
	}

	holding, err := s.app.Ledger.Acquire(r.Context(), owner, sym, req.Quantity, req.Price)
	if err != nil {
		WriteLedgerError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, holding)
}

// handleHoldingSet handles PUT /api/holdings/{symbol} — overwrite quantity
// and average cost directly. Quantity zero deletes the holding.
func (s *Server) handleHoldingSet(w http.ResponseWriter, r *http.Request, symbol string) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req struct {
		Quantity float64 `json:"quantity"`
		AvgCost  float64 `json:"avg_cost"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	sym, err := quote.ValidateSymbol(symbol)
	if err != nil {
		WriteLedgerError(w, err)
		return
	}

	holding, err := s.app.Ledger.SetPosition(r.Context(), owner, sym, req.Quantity, req.AvgCost)
	if err != nil {
		WriteLedgerError(w, err)
		return
	}
	if holding == nil {
		// Zero quantity removed the position.
		WriteJSON(w, http.StatusOK, map[string]string{"status": "removed"})
		return
	}

	WriteJSON(w, http.StatusOK, holding)
}

// handleHoldingRemove handles DELETE /api/holdings/{symbol}.
func (s *Server) handleHoldingRemove(w http.ResponseWriter, r *http.Request, symbol string) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	if err := s.app.Ledger.Remove(r.Context(), owner, symbol); err != nil {
		WriteLedgerError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// handleHoldingSell handles POST /api/holdings/{symbol}/sell — dispose of
// part or all of a position, realizing the gain.
func (s *Server) handleHoldingSell(w http.ResponseWriter, r *http.Request, symbol string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req struct {
		Quantity float64  `json:"quantity"`
		Price    *float64 `json:"price"` // optional; omitted means market price
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	sale, err := s.app.Ledger.Dispose(r.Context(), owner, symbol, req.Quantity, req.Price)
	if err != nil {
		WriteLedgerError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, sale)
}
