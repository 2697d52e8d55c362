package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"warung/internal/core"
	ports "warung/internal/sheets"
)

const testClientJSON = `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`

// fakeSheetsAPI serves the handful of Sheets endpoints the client calls.
type fakeSheetsAPI struct {
	mu        sync.Mutex
	rows      [][]any
	sheetID   int64
	appends   int
	metaCalls int
	failGet   bool
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
		if f.failGet {
			http.Error(w, `{"error":{"code":400,"message":"bad range"}}`, http.StatusBadRequest)
			return
		}
		col := make([][]any, 0, len(f.rows))
		for _, row := range f.rows {
			col = append(col, row[:1])
		}
		writeJSON(w, map[string]any{"range": "Transaksi!A1:A", "values": col})

	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.appends++
		f.rows = append(f.rows, vr.Values...)
		writeJSON(w, map[string]any{"updates": map[string]any{"updatedRange": fmt.Sprintf("Transaksi!A%d:H%d", len(f.rows), len(f.rows))}})

	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, rq := range req.Requests {
			rng := rq.DeleteDimension.Range
			if rng.SheetId != f.sheetID {
				http.Error(w, "wrong sheet", http.StatusBadRequest)
				return
			}
			f.rows = append(f.rows[:rng.StartIndex], f.rows[rng.EndIndex:]...)
		}
		writeJSON(w, map[string]any{"spreadsheetId": "sheet-1"})

	case r.Method == http.MethodGet && strings.HasSuffix(path, "/spreadsheets/sheet-1"):
		f.metaCalls++
		writeJSON(w, map[string]any{"sheets": []any{
			map[string]any{"properties": map[string]any{"sheetId": 3, "title": "Other"}},
			map[string]any{"properties": map[string]any{"sheetId": f.sheetID, "title": "Transaksi"}},
		}})

	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

func (f *fakeSheetsAPI) ids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.rows))
	for i, row := range f.rows {
		out[i] = fmt.Sprint(row[0])
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, api *fakeSheetsAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithHTTPClient(srv.Client()),
		goption.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatalf("sheets service: %v", err)
	}
	return newClient(svc, Config{SpreadsheetID: "sheet-1", SheetName: "Transaksi", Location: time.UTC}, nil)
}

func sampleTransaction(id string) core.Transaction {
	return core.Transaction{
		ID:         id,
		Kind:       core.Income,
		Item:       "lele bakar",
		Amount:     36000,
		Quantity:   3,
		OwnerID:    "628123",
		Note:       "Penjualan lele bakar",
		OccurredAt: time.Date(2025, 3, 10, 12, 30, 0, 0, time.UTC),
	}
}

func TestAppendWritesHeaderAndRow(t *testing.T) {
	api := &fakeSheetsAPI{sheetID: 42}
	c := newTestClient(t, api)

	if err := c.AppendTransaction(context.Background(), sampleTransaction("tx-1")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := c.AppendTransaction(context.Background(), sampleTransaction("tx-2")); err != nil {
		t.Fatalf("append: %v", err)
	}

	got := api.ids()
	want := []string{"ID", "tx-1", "tx-2"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("ids = %v, want %v", got, want)
	}
	row := api.rows[1]
	if row[1] != "2025-03-10 12:30:00" || row[3] != "income" || row[4] != "lele bakar" {
		t.Fatalf("unexpected row %v", row)
	}
}

func TestAppendIsIdempotentByID(t *testing.T) {
	api := &fakeSheetsAPI{sheetID: 42}
	c := newTestClient(t, api)

	for i := 0; i < 2; i++ {
		if err := c.AppendTransaction(context.Background(), sampleTransaction("tx-1")); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if api.appends != 1 {
		t.Fatalf("appends = %d, want 1", api.appends)
	}
}

func TestAppendRequiresID(t *testing.T) {
	c := newTestClient(t, &fakeSheetsAPI{})
	if err := c.AppendTransaction(context.Background(), sampleTransaction("")); err == nil {
		t.Fatal("expected error for missing id")
	}
}

func TestDeleteRemovesMatchingRow(t *testing.T) {
	api := &fakeSheetsAPI{
		sheetID: 42,
		rows: [][]any{
			header,
			{"tx-1", "", "", "", "", "", "", ""},
			{"tx-2", "", "", "", "", "", "", ""},
			{"tx-3", "", "", "", "", "", "", ""},
		},
	}
	c := newTestClient(t, api)

	if err := c.DeleteTransaction(context.Background(), "tx-2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := strings.Join(api.ids(), ","); got != "ID,tx-1,tx-3" {
		t.Fatalf("ids after delete = %s", got)
	}

	if err := c.DeleteTransaction(context.Background(), "tx-3"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if api.metaCalls != 1 {
		t.Fatalf("sheet id looked up %d times, want 1", api.metaCalls)
	}
}

func TestDeleteMissingRowIsNoop(t *testing.T) {
	api := &fakeSheetsAPI{sheetID: 42, rows: [][]any{header}}
	c := newTestClient(t, api)

	if err := c.DeleteTransaction(context.Background(), "tx-9"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if api.metaCalls != 0 {
		t.Fatal("sheet metadata fetched for a missing row")
	}
}

func TestReadFailureIsReturned(t *testing.T) {
	c := newTestClient(t, &fakeSheetsAPI{failGet: true})
	err := c.AppendTransaction(context.Background(), sampleTransaction("tx-1"))
	if err == nil || !strings.Contains(err.Error(), "read ids") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestApplyRoutesEvents(t *testing.T) {
	api := &fakeSheetsAPI{sheetID: 0}
	c := newTestClient(t, api)
	ctx := context.Background()

	tx := sampleTransaction("tx-1")
	if err := ports.Apply(ctx, c, core.TransactionEvent{Type: core.EventRecorded, Transaction: tx}); err != nil {
		t.Fatalf("apply recorded: %v", err)
	}
	if err := ports.Apply(ctx, c, core.TransactionEvent{Type: core.EventDeleted, Transaction: tx}); err != nil {
		t.Fatalf("apply deleted: %v", err)
	}
	if got := strings.Join(api.ids(), ","); got != "ID" {
		t.Fatalf("ids = %s, want only the header", got)
	}
	if err := ports.Apply(ctx, c, core.TransactionEvent{Type: "archived", Transaction: tx}); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

func TestFindRow(t *testing.T) {
	ids := []string{"ID", "a", "", "b"}
	cases := map[string]int{"a": 2, "b": 4, "c": 0, "": 0, " a ": 2}
	for id, want := range cases {
		if got := findRow(ids, id); got != want {
			t.Errorf("findRow(%q) = %d, want %d", id, got, want)
		}
	}
}

func TestDeleteRowRequestSendsZeroIndexes(t *testing.T) {
	b, err := json.Marshal(deleteRowRequest(0, 1))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	for _, want := range []string{`"sheetId":0`, `"startIndex":0`, `"endIndex":1`, `"dimension":"ROWS"`} {
		if !strings.Contains(s, want) {
			t.Errorf("request %s missing %s", s, want)
		}
	}
}

func TestNewSheetsServiceCredentials(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"no credentials", Config{}, "missing credentials"},
		{"bad oauth client", Config{OAuthClientJSON: "invalid-json"}, "oauth config"},
		{"missing token", Config{OAuthClientJSON: testClientJSON}, "missing oauth token"},
		{"bad token", Config{OAuthClientJSON: testClientJSON, OAuthTokenJSON: "{nope"}, "oauth token"},
		{"missing file", Config{ServiceAccountFile: "/does/not/exist.json"}, "read service account file"},
		{"oauth ok", Config{OAuthClientJSON: testClientJSON, OAuthTokenJSON: `{"access_token":"test","token_type":"Bearer"}`}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, err := newSheetsService(ctx, tc.cfg)
			if tc.wantErr == "" {
				if err != nil || svc == nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("err = %v, want %q", err, tc.wantErr)
			}
		})
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), Config{SheetName: "Transaksi"}, nil); err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
}
