package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	AuthRegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_registrations_total",
			Help: "Total number of registration attempts.",
		},
		[]string{"result"},
	)

	AuthLoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Total number of login attempts.",
		},
		[]string{"result"},
	)

	TokensIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_tokens_issued_total",
			Help: "Total number of tokens issued or refreshed.",
		},
		[]string{"flow", "result"},
	)

	RefreshReuseDetectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_refresh_reuse_detected_total",
			Help: "Refresh tokens presented again after revocation.",
		},
	)

	LockoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_lockouts_total",
			Help: "Accounts locked after repeated failed logins.",
		},
	)

	BlacklistChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_blacklist_checks_total",
			Help: "Access token blacklist lookups by answering layer.",
		},
		[]string{"source", "result"},
	)

	TwoFactorVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_two_factor_verifications_total",
			Help: "Two-factor code checks.",
		},
		[]string{"method", "result"},
	)

	CleanupDeletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_cleanup_deleted_total",
			Help: "Rows deleted by retention cleanup.",
		},
		[]string{"category"},
	)
)

// MustRegister registers every collector on the default registry with a
// constant service label. Collectors work unregistered, which tests rely on.
func MustRegister(serviceName string) {
	reg := prometheus.WrapRegistererWith(prometheus.Labels{"service": serviceName}, prometheus.DefaultRegisterer)
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		AuthRegistrationsTotal,
		AuthLoginsTotal,
		TokensIssuedTotal,
		RefreshReuseDetectedTotal,
		LockoutsTotal,
		BlacklistChecksTotal,
		TwoFactorVerificationsTotal,
		CleanupDeletedTotal,
	)
}
