package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/newthinker/sextant/internal/api/response"
	"github.com/newthinker/sextant/internal/backtest"
	"github.com/newthinker/sextant/internal/compare"
	"github.com/newthinker/sextant/internal/core"
	"github.com/newthinker/sextant/internal/storage/run"
)

func seedRuns(t *testing.T, store run.Store) []string {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i, symbol := range []string{"BTCUSDT", "ETHUSDT", "BTCUSDT"} {
		p := backtest.DefaultParams()
		p.Symbol = symbol
		rec := run.NewRecord(symbol, p, backtest.Report{
			Symbol:      symbol,
			EquityCurve: []backtest.EquityPoint{{Time: base, Value: 10000}},
		})
		rec.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		if err := store.Save(context.Background(), &rec); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, rec.ID)
	}
	return ids
}

func newRunsMux(store run.Store) *http.ServeMux {
	h := NewRunsHandler(store)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/runs", h.List)
	mux.HandleFunc("GET /api/v1/runs/{id}", h.Get)
	mux.HandleFunc("DELETE /api/v1/runs/{id}", h.Delete)
	return mux
}

type listBody struct {
	Data []run.Record `json:"data"`
	Meta response.Meta
}

func TestRunsHandler_List(t *testing.T) {
	store := run.NewMemoryStore(10)
	ids := seedRuns(t, store)
	mux := newRunsMux(store)

	w := get(mux, "/api/v1/runs?symbol=btcusdt&limit=1")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body listBody
	json.Unmarshal(w.Body.Bytes(), &body)
	if len(body.Data) != 1 {
		t.Fatalf("expected 1 run, got %d", len(body.Data))
	}
	if body.Data[0].ID != ids[2] {
		t.Errorf("expected newest BTCUSDT run first")
	}
	if len(body.Data[0].Results.EquityCurve) != 0 {
		t.Error("list view must omit the equity curve")
	}
	if body.Meta.Total == nil || *body.Meta.Total != 2 {
		t.Errorf("expected total 2, got %v", body.Meta.Total)
	}
}

func TestRunsHandler_List_Defaults(t *testing.T) {
	mux := newRunsMux(run.NewMemoryStore(10))

	w := get(mux, "/api/v1/runs")
	var body listBody
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Data == nil {
		t.Error("expected empty array, not null")
	}
	if body.Meta.Limit != defaultRunLimit {
		t.Errorf("expected limit %d, got %d", defaultRunLimit, body.Meta.Limit)
	}

	w = get(mux, "/api/v1/runs?limit=abc")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", w.Code)
	}
}

func TestRunsHandler_GetAndDelete(t *testing.T) {
	store := run.NewMemoryStore(10)
	ids := seedRuns(t, store)
	mux := newRunsMux(store)

	w := get(mux, "/api/v1/runs/"+ids[0])
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Data run.Record `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if len(body.Data.Results.EquityCurve) != 1 {
		t.Error("detail view must include the equity curve")
	}

	del := httptest.NewRecorder()
	mux.ServeHTTP(del, httptest.NewRequest("DELETE", "/api/v1/runs/"+ids[0], nil))
	if del.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", del.Code)
	}

	w = get(mux, "/api/v1/runs/"+ids[0])
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}
	if code := errorCode(t, w); code != "RUN_NOT_FOUND" {
		t.Errorf("expected RUN_NOT_FOUND, got %s", code)
	}
}

func TestCompareHandler_Compare(t *testing.T) {
	svc := &fakeService{cmp: &compare.Comparison{Labels: []string{"a", "b"}}}
	h := NewCompareHandler(svc)

	w := post(http.HandlerFunc(h.Compare), "/api/v1/compare", `{"ids": ["a", "b"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Data compare.Comparison `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if len(body.Data.Labels) != 2 {
		t.Errorf("expected 2 labels, got %v", body.Data.Labels)
	}
}

func TestCompareHandler_Errors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{core.ErrCompareInput, http.StatusBadRequest},
		{core.ErrRunNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		h := NewCompareHandler(&fakeService{err: tt.err})
		w := post(http.HandlerFunc(h.Compare), "/api/v1/compare", `{"ids": ["a"]}`)
		if w.Code != tt.status {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.status, w.Code)
		}
	}
}
