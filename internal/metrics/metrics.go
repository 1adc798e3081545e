package metrics

import (
	"net/http"

	"github.com/01moynul/qr-inventory/internal/apperr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector exported on /metrics.
var Registry = prometheus.NewRegistry()

var (
	SheetRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_sheet_requests_total",
			Help: "Calls made to the Sheets values API",
		},
		[]string{"op", "outcome"},
	)

	QuantityWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_quantity_writes_total",
			Help: "Quantity updates by outcome",
		},
		[]string{"outcome"},
	)

	Scans = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_scans_total",
			Help: "Scan reconciliations reaching a terminal state",
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(
		SheetRequests,
		QuantityWrites,
		Scans,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Outcome is the label value for err: "ok" or the error kind.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return apperr.KindOf(err).String()
}
