package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yungbote/fleet-backend/internal/data/docstore"
	"github.com/yungbote/fleet-backend/internal/data/docstore/memory"
	"github.com/yungbote/fleet-backend/internal/data/docstore/storetest"
)

func TestObserveAPI(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPI("GET", "/boats/:boat_id", "404", 5*time.Millisecond)
	m.ObserveAPI("GET", "/boats/:boat_id", "404", 5*time.Millisecond)
	if got := testutil.ToFloat64(m.apiRequests.WithLabelValues("GET", "/boats/:boat_id", "404")); got != 2 {
		t.Fatalf("requests: want=2 got=%v", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/", "200", time.Millisecond)
	m.ApiInflightInc()
	m.ApiInflightDec()
	m.RecordCascade("assign", 2)
	m.ObserveStoreOp("get", "Boats", nil, time.Millisecond)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("want 404 from nil handler, got %d", rec.Code)
	}
}

func TestHandlerExposesCascades(t *testing.T) {
	m := NewMetrics()
	m.RecordCascade("boat_delete", 3)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `fleet_cascade_writes_total{op="boat_delete"} 3`) {
		t.Fatalf("cascade writes missing from exposition:\n%s", body)
	}
}

func TestInstrumentStoreKeepsCapabilities(t *testing.T) {
	m := NewMetrics()
	s := InstrumentStore(memory.New(), m)
	if _, ok := s.(docstore.Transactor); !ok {
		t.Fatalf("transactional store lost Transactor")
	}
	if _, ok := s.(docstore.Pinger); !ok {
		t.Fatalf("store lost Pinger")
	}
	plain := InstrumentStore(storetest.NewFaulty(memory.New(), -1), m)
	if _, ok := plain.(docstore.Transactor); ok {
		t.Fatalf("non-transactional store gained Transactor")
	}
}

func TestInstrumentStoreCountsOutcomes(t *testing.T) {
	m := NewMetrics()
	s := InstrumentStore(memory.New(), m)
	ctx := context.Background()

	key, err := s.Save(ctx, "Boats", []byte(`{}`))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.Get(ctx, docstore.Key{Kind: "Boats", ID: key.ID + 1}); !errors.Is(err, docstore.ErrNoSuchEntity) {
		t.Fatalf("want ErrNoSuchEntity, got %v", err)
	}
	tx := s.(docstore.Transactor)
	if err := tx.RunInTransaction(ctx, func(tx docstore.Store) error {
		return tx.Update(ctx, key, []byte(`{"name":"x"}`))
	}); err != nil {
		t.Fatalf("tx: %v", err)
	}

	if got := testutil.ToFloat64(m.storeOps.WithLabelValues("save", "Boats", "ok")); got != 1 {
		t.Fatalf("save ok: got %v", got)
	}
	if got := testutil.ToFloat64(m.storeOps.WithLabelValues("get", "Boats", "error")); got != 1 {
		t.Fatalf("get error: got %v", got)
	}
	if got := testutil.ToFloat64(m.storeOps.WithLabelValues("update", "Boats", "ok")); got != 1 {
		t.Fatalf("update inside tx: got %v", got)
	}
	if got := testutil.ToFloat64(m.storeOps.WithLabelValues("transaction", "unknown", "ok")); got != 1 {
		t.Fatalf("transaction: got %v", got)
	}
}
