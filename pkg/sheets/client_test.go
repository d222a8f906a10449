package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/shunichi-ikebuchi/society-dues/pkg/dues"
)

// fakeAPI serves the subset of the Sheets and Drive APIs the client uses.
type fakeAPI struct {
	mu      sync.Mutex
	values  [][]interface{}
	updates map[string]interface{}
	status  int // forced error status for every request when non-zero
	lookups int
}

func (f *fakeAPI) router() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if f.status != 0 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(f.status)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"code": f.status, "message": "forced failure"},
				})
				return
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/drive/v3/files", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		f.lookups++
		f.mu.Unlock()
		files := []map[string]string{}
		if strings.Contains(req.URL.Query().Get("q"), "name = 'Society_Maintenance'") {
			files = append(files, map[string]string{"id": "doc-1", "name": "Society_Maintenance"})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"files": files})
	})
	r.Get("/v4/spreadsheets/{id}/values/{range}", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		rng, _ := url.PathUnescape(chi.URLParam(req, "range"))
		values := f.values
		if strings.HasSuffix(rng, "!1:1") && len(values) > 0 {
			values = values[:1]
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"range":          rng,
			"majorDimension": "ROWS",
			"values":         values,
		})
	})
	r.Put("/v4/spreadsheets/{id}/values/{range}", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Values [][]interface{} `json:"values"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rng, _ := url.PathUnescape(chi.URLParam(req, "range"))
		f.mu.Lock()
		f.updates[rng] = body.Values[0][0]
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"updatedRange": rng, "updatedCells": 1})
	})
	return r
}

func newTestClient(t *testing.T, api *fakeAPI, cfg Config) *Client {
	t.Helper()
	server := httptest.NewServer(api.router())
	t.Cleanup(server.Close)

	cfg.APIEndpoint = server.URL
	if cfg.WorksheetName == "" {
		cfg.WorksheetName = "Due_Amounts"
	}
	client, err := NewClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func sampleValues() [][]interface{} {
	return [][]interface{}{
		{"Flat No", "Regular Maintenance", "# of Bike", "# of Cycle", "# of Months Due"},
		{"A-101", 1000.0, 1.0, 0.0, 2.0},
		{"A-102", 1250.5, 0.0, 2.0},
	}
}

func TestFetchAllByName(t *testing.T) {
	api := &fakeAPI{values: sampleValues(), updates: map[string]interface{}{}}
	client := newTestClient(t, api, Config{SpreadsheetName: "Society_Maintenance"})

	table, err := client.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("Len() = %d, expected 2", table.Len())
	}
	tests := []struct {
		pos      int
		column   string
		expected string
	}{
		{0, "Flat No", "A-101"},
		{0, "Regular Maintenance", "1000"},
		{1, "Regular Maintenance", "1250.5"},
		{1, "# of Months Due", ""},
	}
	for _, tt := range tests {
		got, err := table.Cell(tt.pos, tt.column)
		if err != nil {
			t.Fatalf("Cell(%d, %q) error = %v", tt.pos, tt.column, err)
		}
		if got != tt.expected {
			t.Errorf("Cell(%d, %q) = %q, expected %q", tt.pos, tt.column, got, tt.expected)
		}
	}

	if _, err := client.FetchAll(context.Background()); err != nil {
		t.Fatalf("second FetchAll() error = %v", err)
	}
	if api.lookups != 1 {
		t.Errorf("drive lookups = %d, expected 1", api.lookups)
	}
}

func TestSpreadsheetNotFound(t *testing.T) {
	api := &fakeAPI{values: sampleValues(), updates: map[string]interface{}{}}
	client := newTestClient(t, api, Config{SpreadsheetName: "Missing"})

	_, err := client.FetchAll(context.Background())
	if !errors.Is(err, ErrSpreadsheetNotFound) {
		t.Errorf("FetchAll() error = %v, expected ErrSpreadsheetNotFound", err)
	}
	if !errors.Is(err, dues.ErrConnection) {
		t.Errorf("FetchAll() error = %v, expected to wrap ErrConnection", err)
	}
}

func TestWriteCell(t *testing.T) {
	api := &fakeAPI{values: sampleValues(), updates: map[string]interface{}{}}
	client := newTestClient(t, api, Config{SpreadsheetID: "doc-1"})

	// No prior fetch: the header row is loaded on demand.
	if err := client.WriteCell(context.Background(), 1, "# of Cycle", 3); err != nil {
		t.Fatalf("WriteCell() error = %v", err)
	}
	got, ok := api.updates["'Due_Amounts'!D3"]
	if !ok {
		t.Fatalf("updates = %v, expected a write to 'Due_Amounts'!D3", api.updates)
	}
	if got != 3.0 {
		t.Errorf("written value = %v, expected 3", got)
	}
	if api.lookups != 0 {
		t.Errorf("drive lookups = %d, expected 0 with an explicit ID", api.lookups)
	}
}

func TestWriteCellUnknownColumn(t *testing.T) {
	api := &fakeAPI{values: sampleValues(), updates: map[string]interface{}{}}
	client := newTestClient(t, api, Config{SpreadsheetID: "doc-1"})

	err := client.WriteCell(context.Background(), 0, "Owner", 1)
	var writeErr *dues.WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("WriteCell() error = %v, expected *dues.WriteError", err)
	}
	if writeErr.Row != 2 {
		t.Errorf("WriteError.Row = %d, expected 2", writeErr.Row)
	}
	if !errors.Is(err, dues.ErrUnknownColumn) {
		t.Errorf("WriteCell() error = %v, expected ErrUnknownColumn", err)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		status   int
		expected error
	}{
		{http.StatusUnauthorized, dues.ErrAuth},
		{http.StatusForbidden, dues.ErrAuth},
		{http.StatusNotFound, dues.ErrConnection},
		{http.StatusInternalServerError, dues.ErrConnection},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			api := &fakeAPI{status: tt.status, updates: map[string]interface{}{}}
			client := newTestClient(t, api, Config{SpreadsheetID: "doc-1"})

			_, err := client.FetchAll(context.Background())
			if !errors.Is(err, tt.expected) {
				t.Errorf("FetchAll() error = %v, expected %v", err, tt.expected)
			}
		})
	}
}

func TestUnreachableEndpoint(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	client, err := NewClient(context.Background(), Config{
		SpreadsheetID: "doc-1",
		WorksheetName: "Due_Amounts",
		APIEndpoint:   endpoint,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if _, err := client.FetchAll(context.Background()); !errors.Is(err, dues.ErrConnection) {
		t.Errorf("FetchAll() error = %v, expected ErrConnection", err)
	}
}

func TestFixPrivateKey(t *testing.T) {
	raw := []byte(`{"type":"service_account","private_key":"-----BEGIN-----\\nabc\\n-----END-----\\n"}`)
	fixed, err := fixPrivateKey(raw)
	if err != nil {
		t.Fatalf("fixPrivateKey() error = %v", err)
	}
	var bundle map[string]string
	if err := json.Unmarshal(fixed, &bundle); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	expected := "-----BEGIN-----\nabc\n-----END-----\n"
	if bundle["private_key"] != expected {
		t.Errorf("private_key = %q, expected %q", bundle["private_key"], expected)
	}

	if _, err := fixPrivateKey([]byte("not json")); !errors.Is(err, dues.ErrAuth) {
		t.Errorf("fixPrivateKey(invalid) error = %v, expected ErrAuth", err)
	}
}

func TestNewClientWithoutCredentials(t *testing.T) {
	_, err := NewClient(context.Background(), Config{SpreadsheetName: "Society_Maintenance"})
	if !errors.Is(err, dues.ErrAuth) {
		t.Errorf("NewClient() error = %v, expected ErrAuth", err)
	}
}

func TestQuoteSheet(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Due_Amounts", "'Due_Amounts'"},
		{"Bob's dues", "'Bob''s dues'"},
	}
	for _, tt := range tests {
		if got := quoteSheet(tt.input); got != tt.expected {
			t.Errorf("quoteSheet(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}
