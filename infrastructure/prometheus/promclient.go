package promclient

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "promclient")

var SnapshotsFetched = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "orderbook_snapshots_fetched_total",
		Help: "full depth snapshots fetched over REST",
	},
	[]string{"exchange"},
)

var UpdatesApplied = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "orderbook_updates_applied_total",
		Help: "depth updates merged into a local book",
	},
	[]string{"exchange"},
)

var UpdatesDropped = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "orderbook_updates_dropped_total",
		Help: "depth updates dropped as stale or unparseable",
	},
	[]string{"exchange"},
)

var SyncErrors = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "orderbook_sync_errors_total",
		Help: "snapshot fetch and sync failures",
	},
	[]string{"exchange"},
)

var Resyncs = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "orderbook_resyncs_total",
		Help: "forced resyncs after a sequence gap or buffer overflow",
	},
	[]string{"exchange"},
)

var OpenOrderBooks = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "orderbook_open_books",
		Help: "order books currently maintained",
	},
	[]string{"exchange"},
)

func StartPromClientServer(addr string) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(SnapshotsFetched)
	reg.MustRegister(UpdatesApplied)
	reg.MustRegister(UpdatesDropped)
	reg.MustRegister(SyncErrors)
	reg.MustRegister(Resyncs)
	reg.MustRegister(OpenOrderBooks)
	reg.MustRegister(collectors.NewGoCollector())

	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	logger.Infof("prometheus server listening at %s", addr)

	if err := http.ListenAndServe(addr, nil); err != nil {
		logger.Fatalf("failed to serve: %v", err)
	}
}
