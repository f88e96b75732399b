package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var credibilityGauge = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "ashc_credibility",
		Help: "Current credibility of a confidence-claiming identity",
	},
	[]string{"identity"},
)
