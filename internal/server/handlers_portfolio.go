package server

import (
	"net/http"

	"github.com/finfolio/finfolio/internal/models"
)

// handlePortfolio handles GET /api/portfolio — valuation rows plus total
// realized profit. Prices come from cache only; rows missing a fresh price
// carry price_unavailable instead of blocking on a provider.
func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	valuation, err := s.app.Valuation.Valuate(r.Context(), owner)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to value portfolio: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, valuation)
}

// handleSaleList handles GET /api/sales.
func (s *Server) handleSaleList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	sales, err := s.app.Ledger.ListSales(r.Context(), owner)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to list sales: "+err.Error())
		return
	}
	if sales == nil {
		sales = []*models.RealizedSale{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"sales": sales,
	})
}

// handleSaleDelete handles DELETE /api/sales/{id} — the correction path for
// a mis-entered disposal.
func (s *Server) handleSaleDelete(w http.ResponseWriter, r *http.Request, saleID string) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	if err := s.app.Ledger.DeleteSale(r.Context(), owner, saleID); err != nil {
		WriteLedgerError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
