package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bobmcallan/folio/internal/app"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
	testcommon "github.com/bobmcallan/folio/test/common"
)

const sampleStatement = `Trades,Header,DataDiscriminator,Asset Category,Currency,Symbol,Date/Time,Quantity,T. Price,C. Price,Proceeds,Comm/Fee,Basis,Realized P/L,MTM P/L,Code
Trades,Data,Order,Stocks,USD,AAPL,"2024-03-15, 09:30:00",10,100,100,-1000,-1,1001,0,0,O
Dividends,Header,Currency,Date,Description,Amount
Dividends,Data,USD,2024-05-01,AAPL(US0378331005) Cash Dividend USD 0.24 per Share,2.40
`

func newTestServer(t *testing.T) (http.Handler, *testcommon.MemoryStorage, *testcommon.MockMarketClient) {
	t.Helper()
	storage := testcommon.NewMemoryStorage()
	market := testcommon.NewMockMarketClient()
	market.SetBars("USDEUR.FOREX",
		testcommon.Bar("2024-03-15", 0.92),
		testcommon.Bar("2024-05-01", 0.94),
	)

	a := app.NewAppWithDeps(common.NewDefaultConfig(), common.NewSilentLogger(), storage, market)
	return NewServer(a).Handler(), storage, market
}

func do(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	handler, _, _ := newTestServer(t)

	rec := do(t, handler, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %s, want ok", body["status"])
	}
}

func TestVersionEndpoint(t *testing.T) {
	handler, _, _ := newTestServer(t)

	rec := do(t, handler, http.MethodGet, "/api/version", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}
}

func TestStatementUploadAndListing(t *testing.T) {
	handler, _, _ := newTestServer(t)

	rec := do(t, handler, http.MethodPost, "/api/portfolios/main/statements", sampleStatement)
	if rec.Code != http.StatusOK {
		t.Fatalf("Upload status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var result models.IngestResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if result.TradesInserted != 1 {
		t.Errorf("TradesInserted = %d, want 1", result.TradesInserted)
	}
	if result.ImportID == "" {
		t.Error("Expected an import ID")
	}

	rec = do(t, handler, http.MethodGet, "/api/portfolios/main/positions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Positions status = %d, want 200", rec.Code)
	}
	var positions []*models.Position
	if err := json.Unmarshal(rec.Body.Bytes(), &positions); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(positions) != 1 || positions[0].Symbol != "AAPL" {
		t.Errorf("Positions = %+v, want one AAPL row", positions)
	}

	rec = do(t, handler, http.MethodGet, "/api/portfolios/main/trades", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Trades status = %d, want 200", rec.Code)
	}

	rec = do(t, handler, http.MethodGet, "/api/portfolios/main/income", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Income status = %d, want 200", rec.Code)
	}

	rec = do(t, handler, http.MethodGet, "/api/portfolios/main/imports", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Imports status = %d, want 200", rec.Code)
	}
	var imports []*models.Import
	if err := json.Unmarshal(rec.Body.Bytes(), &imports); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(imports) != 1 {
		t.Errorf("Imports = %d, want 1", len(imports))
	}
}

func TestStatementUpload_BadFile(t *testing.T) {
	handler, _, _ := newTestServer(t)

	rec := do(t, handler, http.MethodPost, "/api/portfolios/main/statements", "not,a,statement\n")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Status = %d, want 422", rec.Code)
	}

	rec = do(t, handler, http.MethodPost, "/api/portfolios/main/statements", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400 for empty body", rec.Code)
	}
}

func TestRecomputeEndpoint(t *testing.T) {
	handler, _, _ := newTestServer(t)

	do(t, handler, http.MethodPost, "/api/portfolios/main/statements", sampleStatement)

	rec := do(t, handler, http.MethodPost, "/api/portfolios/main/recompute", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var result models.RecomputeResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if result.PositionsUpdated != 1 {
		t.Errorf("PositionsUpdated = %d, want 1", result.PositionsUpdated)
	}
}

func TestImportDeleteEndpoint(t *testing.T) {
	handler, storage, _ := newTestServer(t)

	rec := do(t, handler, http.MethodPost, "/api/portfolios/main/statements", sampleStatement)
	var result models.IngestResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}

	rec = do(t, handler, http.MethodDelete, "/api/imports/"+result.ImportID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if storage.TradeCount() != 0 {
		t.Errorf("Stored trades = %d, want 0 after cascade", storage.TradeCount())
	}

	rec = do(t, handler, http.MethodDelete, "/api/imports/no-such-import", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404 for unknown import", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler, _, _ := newTestServer(t)

	rec := do(t, handler, http.MethodGet, "/api/portfolios/main/statements", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Status = %d, want 405", rec.Code)
	}

	rec = do(t, handler, http.MethodPost, "/api/portfolios/main/positions", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Status = %d, want 405", rec.Code)
	}
}

func TestUnknownRoutes(t *testing.T) {
	handler, _, _ := newTestServer(t)

	rec := do(t, handler, http.MethodGet, "/api/portfolios/main/unknown", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", rec.Code)
	}

	rec = do(t, handler, http.MethodGet, "/api/portfolios/", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404 for missing portfolio", rec.Code)
	}
}
