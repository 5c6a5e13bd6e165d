package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector aggregates the bot's operational metrics on a private registry.
type Collector struct {
	registry           *prometheus.Registry
	commandsProcessed  *prometheus.CounterVec
	transactionAmounts *prometheus.HistogramVec
	gambleOutcomes     *prometheus.CounterVec
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		commandsProcessed: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "hoodbot_commands_processed_total",
			Help: "Commands handled, by command name and outcome",
		}, []string{"command", "outcome"}),
		transactionAmounts: promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hoodbot_transaction_amount",
			Help:    "Committed ledger movement amounts",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}, []string{"reason"}),
		gambleOutcomes: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "hoodbot_gamble_outcomes_total",
			Help: "Coin-flip gamble results",
		}, []string{"result"}),
	}
}

// CommandProcessed records one handled command with its outcome
// ("ok", "rejected" or "error").
func (c *Collector) CommandProcessed(command, outcome string) {
	c.commandsProcessed.WithLabelValues(command, outcome).Inc()
}

// TransactionCommitted records the amount of a committed movement.
func (c *Collector) TransactionCommitted(reason string, amount int64) {
	c.transactionAmounts.WithLabelValues(reason).Observe(float64(amount))
}

// GambleResult records a win or a loss.
func (c *Collector) GambleResult(won bool) {
	result := "loss"
	if won {
		result = "win"
	}
	c.gambleOutcomes.WithLabelValues(result).Inc()
}

// Handler exposes the registry for the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
