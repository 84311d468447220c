package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordLoad(ResultOK, map[string]int{"dimension": 3, "text": 2}, 20*time.Millisecond)
	m.RecordLoad(ResultError, nil, time.Millisecond)
	m.RecordPick(true)
	m.RecordPick(true)
	m.RecordPick(false)
	m.RecordLookup(ResultNotFound)
	m.RecordExport(ResultOK, 188, 50*time.Millisecond)

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"loads ok", m.DrawingsLoaded.WithLabelValues(ResultOK), 1},
		{"loads failed", m.DrawingsLoaded.WithLabelValues(ResultError), 1},
		{"dimensions", m.EntitiesExtracted.WithLabelValues("dimension"), 3},
		{"texts", m.EntitiesExtracted.WithLabelValues("text"), 2},
		{"hits", m.Picks.WithLabelValues(ResultHit), 2},
		{"misses", m.Picks.WithLabelValues(ResultMiss), 1},
		{"lookups", m.ToleranceLookups.WithLabelValues(ResultNotFound), 1},
		{"exports", m.ExportsTotal.WithLabelValues(ResultOK), 1},
		{"cells", m.ExportCellsWritten, 188},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(tt.c); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}

	if n := testutil.CollectAndCount(m.LoadDuration); n != 1 {
		t.Errorf("load duration collected %d metrics", n)
	}
}

func TestRegistries(t *testing.T) {
	// Two sets on separate registries must not collide.
	a := New(prometheus.NewRegistry())
	b := New(prometheus.NewRegistry())
	a.RecordPick(true)
	if got := testutil.ToFloat64(b.Picks.WithLabelValues(ResultHit)); got != 0 {
		t.Errorf("registries share state: %v", got)
	}

	reg := prometheus.NewRegistry()
	New(reg)
	defer func() {
		if recover() == nil {
			t.Error("expected duplicate registration to panic")
		}
	}()
	New(reg)
}
