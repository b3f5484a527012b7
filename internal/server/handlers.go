package server

import (
	"io"
	"net/http"
	"strings"
)

// routePortfolios dispatches /api/portfolios/{name}/{operation}.
func (s *Server) routePortfolios(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/portfolios/")
	parts := strings.SplitN(strings.Trim(rest, "/"), "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	portfolio, operation := parts[0], parts[1]

	switch operation {
	case "statements":
		s.handleStatementUpload(w, r, portfolio)
	case "recompute":
		s.handleRecompute(w, r, portfolio)
	case "positions":
		s.handlePositionList(w, r, portfolio)
	case "trades":
		s.handleTradeList(w, r, portfolio)
	case "income":
		s.handleIncomeList(w, r, portfolio)
	case "imports":
		s.handleImportList(w, r, portfolio)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

// handleStatementUpload handles POST /api/portfolios/{name}/statements.
// Accepts a multipart "file" part or the raw statement as the request body.
func (s *Server) handleStatementUpload(w http.ResponseWriter, r *http.Request, portfolio string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	maxBytes := int64(s.app.Config.Ingest.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	filename := "statement.csv"
	var raw []byte

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Missing file part: "+err.Error())
			return
		}
		defer file.Close()
		filename = header.Filename

		raw, err = io.ReadAll(file)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Failed to read upload: "+err.Error())
			return
		}
	} else {
		var err error
		raw, err = io.ReadAll(r.Body)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Failed to read body: "+err.Error())
			return
		}
	}

	if len(raw) == 0 {
		WriteError(w, http.StatusBadRequest, "Empty statement upload")
		return
	}

	result, err := s.app.IngestService.Ingest(r.Context(), portfolio, filename, raw)
	if err != nil {
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// handleRecompute handles POST /api/portfolios/{name}/recompute.
func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request, portfolio string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	result, err := s.app.LedgerService.RecomputePositions(r.Context(), portfolio)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// handlePositionList handles GET /api/portfolios/{name}/positions.
func (s *Server) handlePositionList(w http.ResponseWriter, r *http.Request, portfolio string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	positions, err := s.app.Storage.PositionStore().ListPositions(r.Context(), portfolio)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, positions)
}

// handleTradeList handles GET /api/portfolios/{name}/trades.
func (s *Server) handleTradeList(w http.ResponseWriter, r *http.Request, portfolio string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	trades, err := s.app.Storage.TradeStore().ListTrades(r.Context(), portfolio)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, trades)
}

// handleIncomeList handles GET /api/portfolios/{name}/income.
func (s *Server) handleIncomeList(w http.ResponseWriter, r *http.Request, portfolio string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	income, err := s.app.Storage.IncomeStore().ListIncome(r.Context(), portfolio)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, income)
}

// handleImportList handles GET /api/portfolios/{name}/imports.
func (s *Server) handleImportList(w http.ResponseWriter, r *http.Request, portfolio string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	imports, err := s.app.Storage.ImportStore().ListImports(r.Context(), portfolio)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, imports)
}

// handleImportDelete handles DELETE /api/imports/{id}. Deleting an import
// cascades to its trades and income events and recomputes positions.
func (s *Server) handleImportDelete(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/imports/"), "/")
	if id == "" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	result, err := s.app.IngestService.DeleteImport(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// handleTradeDelete handles DELETE /api/trades/{id}.
func (s *Server) handleTradeDelete(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/trades/"), "/")
	if id == "" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	result, err := s.app.IngestService.DeleteTrade(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, result)
}
