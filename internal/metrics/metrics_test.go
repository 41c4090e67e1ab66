package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend records every call in memory.
type fakeBackend struct {
	mu sync.Mutex

	counters   []call
	histograms []call
	flushes    int
	flushErr   error
}

type call struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters = append(f.counters, call{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histograms = append(f.histograms, call{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	return f.flushErr
}

func install(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}
	SetBackend(fb)
	t.Cleanup(Reset)
	return fb
}

func TestRecordStep_SuccessAndFailure(t *testing.T) {
	fb := install(t)

	RecordStep("crashwrangle", "missing", nil, 2*time.Second)
	RecordStep("crashwrangle", "coerce", errors.New("boom"), 1500*time.Millisecond)

	if len(fb.counters) != 2 || len(fb.histograms) != 2 {
		t.Fatalf("counters=%d histograms=%d; want 2, 2", len(fb.counters), len(fb.histograms))
	}
	tests := []struct {
		i      int
		step   string
		status string
		secs   float64
	}{
		{0, "missing", "success", 2},
		{1, "coerce", "failure", 1.5},
	}
	for _, tt := range tests {
		c := fb.counters[tt.i]
		if c.name != StepTotal || c.value != 1 {
			t.Fatalf("counter[%d] = %#v; want %s delta 1", tt.i, c, StepTotal)
		}
		if c.labels["step"] != tt.step || c.labels["status"] != tt.status || c.labels["job"] != "crashwrangle" {
			t.Fatalf("counter[%d] labels = %v", tt.i, c.labels)
		}
		h := fb.histograms[tt.i]
		if h.name != StepDuration || h.value != tt.secs {
			t.Fatalf("histogram[%d] = %#v; want %s %.1f", tt.i, h, StepDuration, tt.secs)
		}
	}
}

func TestRecordRow(t *testing.T) {
	fb := install(t)

	RecordRow("crashwrangle", KindLoaded, 3)
	RecordRow("crashwrangle", KindDroppedGeo, 0)
	RecordRow("crashwrangle", KindExported, -1)

	if len(fb.counters) != 1 {
		t.Fatalf("counters = %d; want 1 (non-positive deltas ignored)", len(fb.counters))
	}
	c := fb.counters[0]
	if c.name != RecordsTotal || c.value != 3 || c.labels["kind"] != KindLoaded {
		t.Fatalf("counter = %#v", c)
	}
}

func TestSetBackendNilAndFlush(t *testing.T) {
	fb := install(t)
	SetBackend(nil)

	fb.flushErr = errors.New("gateway down")
	if err := Flush(); !errors.Is(err, fb.flushErr) {
		t.Fatalf("Flush err = %v; want %v", err, fb.flushErr)
	}
	if fb.flushes != 1 {
		t.Fatalf("flushes = %d; want 1", fb.flushes)
	}

	Reset()
	if err := Flush(); err != nil {
		t.Fatalf("nop Flush err = %v", err)
	}
}
