package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/sabouaram/httpengine/httpserver/metrics"
)

func TestCollector_DescribeEmitsFourDescriptors(t *testing.T) {
	m := metrics.New(metrics.Config{RingSize: 4})
	c := metrics.NewCollector(m, "httpengine")

	ch := make(chan *prometheus.Desc, 16)
	c.Describe(ch)
	close(ch)

	var count int
	for range ch {
		count++
	}
	if count != 4 {
		t.Errorf("Describe emitted %d descriptors, want 4", count)
	}
}

func TestCollector_CollectReflectsCurrentBuffer(t *testing.T) {
	m := metrics.New(metrics.Config{RingSize: 4})
	m.Record(completion("/a", 200))

	c := metrics.NewCollector(m, "httpengine")

	ch := make(chan prometheus.Metric, 16)
	c.Collect(ch)
	close(ch)

	var found bool
	for metric := range ch {
		var d dto.Metric
		if err := metric.Write(&d); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if d.Counter != nil && d.Counter.GetValue() == 1 {
			found = true
		}
	}
	if !found {
		t.Error("expected a requests_total counter metric with value 1")
	}
}
