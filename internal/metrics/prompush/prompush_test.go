package prompush

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"csvaudit/internal/metrics"

	dto "github.com/prometheus/client_model/go"
)

// gathered flattens the backend registry into "name{k=v,...}" -> value.
// Summaries report their sample count.
func gathered(t *testing.T, b *Backend) map[string]float64 {
	t.Helper()

	mfs, err := b.reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	out := map[string]float64{}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			out[seriesKey(mf.GetName(), m.GetLabel())] = value(m)
		}
	}
	return out
}

func seriesKey(name string, lbls []*dto.LabelPair) string {
	parts := make([]string, 0, len(lbls))
	for _, lp := range lbls {
		parts = append(parts, lp.GetName()+"="+lp.GetValue())
	}
	sort.Strings(parts)
	return fmt.Sprintf("%s{%s}", name, strings.Join(parts, ","))
}

func value(m *dto.Metric) float64 {
	switch {
	case m.GetCounter() != nil:
		return m.GetCounter().GetValue()
	case m.GetSummary() != nil:
		return float64(m.GetSummary().GetSampleCount())
	}
	return -1
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend("nightly", ""); err == nil {
		t.Fatal("NewBackend without URL: error = nil")
	}
	b, err := NewBackend("", "http://pushgateway:9091")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if b.jobName != DefaultJob {
		t.Fatalf("jobName = %q, want %q", b.jobName, DefaultJob)
	}
}

// TestRunSeries feeds the calls one ingest+export run makes and checks the
// resulting series. The job label is dropped because job is the push
// grouping key.
func TestRunSeries(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("orders", "http://pushgateway:9091")
	if err != nil {
		t.Fatal(err)
	}

	kinds := map[string]float64{
		metrics.KindRows:           1000,
		metrics.KindRowsWithErrors: 12,
		metrics.KindInvalidFields:  15,
		metrics.KindExcluded:       9,
		metrics.KindExported:       1000,
	}
	for k, n := range kinds {
		b.IncCounter(metrics.RecordsTotal, n, metrics.Labels{"job": "orders", "kind": k})
	}
	b.IncCounter(metrics.BatchesTotal, 1, metrics.Labels{"job": "orders"})
	b.IncCounter(metrics.BatchesTotal, 1, metrics.Labels{"job": "orders"})
	for _, step := range []string{"ingest", "export"} {
		lbls := metrics.Labels{"job": "orders", "step": step, "status": "success"}
		b.IncCounter(metrics.StepTotal, 1, lbls)
		b.ObserveHistogram(metrics.StepDuration, 0.25, lbls)
	}
	b.IncCounter("csvaudit_unknown_total", 7, metrics.Labels{"kind": "rows"})

	want := map[string]float64{
		"csvaudit_batches_total{}":                                   2,
		"csvaudit_step_total{status=success,step=ingest}":            1,
		"csvaudit_step_total{status=success,step=export}":            1,
		"csvaudit_step_duration_seconds{status=success,step=ingest}": 1,
		"csvaudit_step_duration_seconds{status=success,step=export}": 1,
	}
	for k, n := range kinds {
		want["csvaudit_records_total{kind="+k+"}"] = n
	}

	got := gathered(t, b)
	if len(got) != len(want) {
		t.Errorf("got %d series, want %d: %v", len(got), len(want), got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
}

func TestZeroValueBackendIsNoop(t *testing.T) {
	t.Parallel()

	var b Backend
	b.IncCounter(metrics.RecordsTotal, 1, metrics.Labels{"kind": metrics.KindExcluded})
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "ingest", "status": "failure"})
	b.IncCounter(metrics.BatchesTotal, 1, nil)
	b.ObserveHistogram(metrics.StepDuration, 1, metrics.Labels{"step": "ingest", "status": "failure"})
}

func TestFlush(t *testing.T) {
	t.Parallel()

	type pushed struct {
		method, path string
		body         []byte
	}
	reqCh := make(chan pushed, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		reqCh <- pushed{r.Method, r.URL.Path, body}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	b, err := NewBackend("orders-nightly", srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	b.IncCounter(metrics.RecordsTotal, 3, metrics.Labels{"kind": metrics.KindInvalidFields})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	var got pushed
	select {
	case got = <-reqCh:
	default:
		t.Fatal("Flush sent no request")
	}
	if got.method != http.MethodPut {
		t.Fatalf("method = %s, want PUT", got.method)
	}
	if !strings.Contains(got.path, "/job/orders-nightly") {
		t.Fatalf("path = %q, want job grouping", got.path)
	}
	for _, want := range []string{metrics.RecordsTotal, metrics.KindInvalidFields} {
		if !bytes.Contains(got.body, []byte(want)) {
			t.Fatalf("push body does not mention %q", want)
		}
	}
}

func TestFlushGatewayError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	b, err := NewBackend("", srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	b.IncCounter(metrics.RecordsTotal, 1, metrics.Labels{"kind": metrics.KindRows})

	err = b.Flush()
	if err == nil || !strings.Contains(err.Error(), "prompush: push to") {
		t.Fatalf("Flush err = %v, want prompush prefix", err)
	}
}
