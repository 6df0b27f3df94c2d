package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCollectorsAddServiceLabelOnRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	wrapped := prometheus.WrapRegistererWith(prometheus.Labels{"service": "auth"}, reg)
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "x_total", Help: "x"}, []string{"result"})
	wrapped.MustRegister(counter)

	counter.WithLabelValues("success").Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 1 {
		t.Fatalf("expected one family, got %d", len(families))
	}
	var found bool
	for _, lp := range families[0].GetMetric()[0].GetLabel() {
		if lp.GetName() == "service" && lp.GetValue() == "auth" {
			found = true
		}
	}
	if !found {
		t.Fatalf("service label missing")
	}
}

func TestUnregisteredCollectorsAreUsable(t *testing.T) {
	before := counterValue(t, LockoutsTotal)
	LockoutsTotal.Inc()
	if got := counterValue(t, LockoutsTotal); got != before+1 {
		t.Fatalf("expected %v, got %v", before+1, got)
	}
	TokensIssuedTotal.WithLabelValues("issue", "success").Inc()
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}
