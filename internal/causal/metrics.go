package causal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var edgesGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "ashc_causal_edges",
	Help: "Number of edges in the causal graph",
})
