package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"tendies/internal/log"
	"tendies/internal/sheets"
)

type fakeSheets struct {
	mu       sync.Mutex
	existing []string
	calls    []string
	written  map[string]any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet:
		f.calls = append(f.calls, "get")
		var sheetsJSON []map[string]any
		for _, title := range f.existing {
			sheetsJSON = append(sheetsJSON, map[string]any{"properties": map[string]any{"title": title}})
		}
		json.NewEncoder(w).Encode(map[string]any{"sheets": sheetsJSON})
	case strings.HasSuffix(path, ":batchUpdate"):
		f.calls = append(f.calls, "addSheet")
		io.WriteString(w, `{}`)
	case strings.HasSuffix(path, ":clear"):
		f.calls = append(f.calls, "clear")
		io.WriteString(w, `{}`)
	case r.Method == http.MethodPut:
		f.calls = append(f.calls, "update:"+r.URL.Query().Get("valueInputOption"))
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.written = body
		io.WriteString(w, `{"updatedRange":"'2024 Payers'!A1:C3","updatedRows":3}`)
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusBadRequest)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return NewWithService(svc, "sheet-id", log.Discard())
}

func TestWriteTableCreatesMissingSheet(t *testing.T) {
	fake := &fakeSheets{existing: []string{"2023 Payers"}}
	c := newTestClient(t, fake)

	ref, err := c.WriteTable(context.Background(), sheets.Table{
		Title: "2024 Payers",
		Rows:  [][]any{{"Payer", "Amount", "Percent"}, {"Alice", "300.00", "100%"}},
	})
	if err != nil {
		t.Fatalf("WriteTable() error = %v", err)
	}
	if ref != "'2024 Payers'!A1:C3" {
		t.Errorf("ref = %q", ref)
	}

	want := []string{"get", "addSheet", "clear", "update:USER_ENTERED"}
	if strings.Join(fake.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", fake.calls, want)
	}
	values, _ := fake.written["values"].([]any)
	if len(values) != 2 {
		t.Errorf("written values = %v", fake.written)
	}
}

func TestWriteTableReusesExistingSheet(t *testing.T) {
	fake := &fakeSheets{existing: []string{"2024 Payers"}}
	c := newTestClient(t, fake)

	if _, err := c.WriteTable(context.Background(), sheets.Table{Title: "2024 Payers"}); err != nil {
		t.Fatalf("WriteTable() error = %v", err)
	}
	for _, call := range fake.calls {
		if call == "addSheet" {
			t.Error("existing sheet should not be re-created")
		}
	}
}

func TestWriteTableGuards(t *testing.T) {
	c := &Client{spreadsheetID: "x", logger: log.Discard()}
	if _, err := c.WriteTable(context.Background(), sheets.Table{}); err == nil {
		t.Error("expected error for untitled table")
	}
	if _, err := c.WriteTable(context.Background(), sheets.Table{Title: "t"}); err == nil {
		t.Error("expected error without a service")
	}
}

func TestServiceAccountJSON(t *testing.T) {
	if _, err := serviceAccountJSON(Config{}); err == nil {
		t.Error("expected error without credentials")
	}

	inline, err := serviceAccountJSON(Config{ServiceAccountJSON: `{"type":"service_account"}`, ServiceAccountFile: "/does/not/exist"})
	if err != nil || string(inline) != `{"type":"service_account"}` {
		t.Errorf("inline JSON should win, got %q, %v", inline, err)
	}

	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"k":1}`), 0o600); err != nil {
		t.Fatal(err)
	}
	fromFile, err := serviceAccountJSON(Config{ServiceAccountFile: path})
	if err != nil || string(fromFile) != `{"k":1}` {
		t.Errorf("file credentials = %q, %v", fromFile, err)
	}

	if _, err := serviceAccountJSON(Config{ServiceAccountFile: filepath.Join(t.TempDir(), "missing.json")}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), Config{ServiceAccountJSON: "{}"}, nil); err == nil {
		t.Error("expected error for missing spreadsheet id")
	}
}

func TestQuoteSheet(t *testing.T) {
	if got := quoteSheet("Bob's 2024"); got != "'Bob''s 2024'" {
		t.Errorf("quoteSheet() = %q", got)
	}
}
