package token

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus counters emitted by Service. A Metrics built
// by NewMetrics is usable even if never registered (its counters still
// increment in memory), but callers should register it on their own
// registry to actually export it. The zero Metrics value has nil counters.
type Metrics struct {
	IssueTotal    prometheus.Counter
	RotateTotal   *prometheus.CounterVec
	ValidateTotal *prometheus.CounterVec
	LogoutTotal   prometheus.Counter
}

// NewMetrics builds a fresh, unregistered Metrics set.
func NewMetrics() *Metrics {
	return &Metrics{
		IssueTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "token_issue_total",
			Help: "Total number of sessions issued.",
		}),
		RotateTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "token_rotate_total",
			Help: "Total refresh rotations by outcome.",
		}, []string{"outcome"}),
		ValidateTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "token_validate_total",
			Help: "Total access-token validations by outcome.",
		}, []string{"outcome"}),
		LogoutTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "token_logout_total",
			Help: "Total session logouts.",
		}),
	}
}

// MustRegister registers every collector in m on reg, panicking on a
// duplicate-registration error; this only happens at construction time.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.IssueTotal, m.RotateTotal, m.ValidateTotal, m.LogoutTotal)
}
