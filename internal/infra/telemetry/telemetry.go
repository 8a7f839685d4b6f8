package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels shared by the auth counters.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AuthMetrics counts OTP issuance, OTP verification and Google sign-in results.
type AuthMetrics struct {
	otpRequests      *prometheus.CounterVec
	otpVerifications *prometheus.CounterVec
	googleSignIns    *prometheus.CounterVec
}

// NewAuthMetrics registers the auth counters. A nil registerer uses the
// default Prometheus registry.
func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &AuthMetrics{
		otpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notes",
			Subsystem: "auth",
			Name:      "otp_requests_total",
			Help:      "OTP issuance attempts by flow and outcome",
		}, []string{"flow", "outcome"}),
		otpVerifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notes",
			Subsystem: "auth",
			Name:      "otp_verifications_total",
			Help:      "OTP verification results",
		}, []string{"outcome"}),
		googleSignIns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notes",
			Subsystem: "auth",
			Name:      "google_sign_ins_total",
			Help:      "Google identity sign-in results",
		}, []string{"outcome"}),
	}
}

func (m *AuthMetrics) OTPRequested(flow, outcome string) {
	if m == nil {
		return
	}
	m.otpRequests.WithLabelValues(flow, outcome).Inc()
}

// OTPVerified records a verification outcome such as "success", "invalid",
// "expired", "not_found" or "rate_limited".
func (m *AuthMetrics) OTPVerified(outcome string) {
	if m == nil {
		return
	}
	m.otpVerifications.WithLabelValues(outcome).Inc()
}

func (m *AuthMetrics) GoogleSignIn(outcome string) {
	if m == nil {
		return
	}
	m.googleSignIns.WithLabelValues(outcome).Inc()
}
