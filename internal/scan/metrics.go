package scan

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var scansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "checkin",
	Name:      "scans_total",
	Help:      "QR scans processed, labelled by outcome.",
}, []string{"outcome"})
