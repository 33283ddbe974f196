package server

import (
	"net/http"
	"strings"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)

	// Auth
	mux.HandleFunc("/api/auth/register", s.handleAuthRegister)
	mux.HandleFunc("/api/auth/login", s.handleAuthLogin)

	// Holdings
	mux.HandleFunc("/api/holdings/", s.routeHoldings)
	mux.HandleFunc("/api/holdings", s.handleHoldingAcquire)

	// Portfolio and sales
	mux.HandleFunc("/api/portfolio", s.handlePortfolio)
	mux.HandleFunc("/api/sales/", s.routeSales)
	mux.HandleFunc("/api/sales", s.handleSaleList)
}

// routeHoldings dispatches /api/holdings/{symbol} and
// /api/holdings/{symbol}/sell by path shape.
func (s *Server) routeHoldings(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/holdings/")
	if rest == "" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	if symbol, ok := strings.CutSuffix(rest, "/sell"); ok {
		s.handleHoldingSell(w, r, symbol)
		return
	}
	if strings.Contains(rest, "/") {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodPut:
		s.handleHoldingSet(w, r, rest)
	case http.MethodDelete:
		s.handleHoldingRemove(w, r, rest)
	default:
		w.Header().Set("Allow", "PUT, DELETE")
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// routeSales dispatches /api/sales/{id}.
func (s *Server) routeSales(w http.ResponseWriter, r *http.Request) {
	saleID := strings.TrimPrefix(r.URL.Path, "/api/sales/")
	if saleID == "" || strings.Contains(saleID, "/") {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	s.handleSaleDelete(w, r, saleID)
}
