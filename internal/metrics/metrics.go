// Package metrics собирает Prometheus-счётчики операций аутентификации.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Значения метки result.
const (
	ResultSuccess            = "success"
	ResultInvalidCredentials = "invalid_credentials"
	ResultDeviceLimit        = "device_limit"
	ResultUserExists         = "user_exists"
	ResultInvalidToken       = "invalid_token"
	ResultError              = "error"
)

// Metrics счётчики исходов операций сервиса.
// Нулевой указатель допустим: все методы тогда ничего не делают.
type Metrics struct {
	signups     *prometheus.CounterVec
	logins      *prometheus.CounterVec
	validations *prometheus.CounterVec
	logouts     *prometheus.CounterVec
	cacheHits   prometheus.Counter
}

// New создаёт счётчики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	newVec := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "user_service",
			Name:      name,
			Help:      help,
		}, []string{"result"})
	}

	m := &Metrics{
		signups:     newVec("signups_total", "Signup attempts by result."),
		logins:      newVec("logins_total", "Login attempts by result."),
		validations: newVec("token_validations_total", "Token validations by result."),
		logouts:     newVec("logouts_total", "Logout attempts by result."),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "user_service",
			Name:      "session_cache_hits_total",
			Help:      "Token validations served from the session cache.",
		}),
	}
	reg.MustRegister(m.signups, m.logins, m.validations, m.logouts, m.cacheHits)
	return m
}

// Signup учитывает попытку регистрации.
func (m *Metrics) Signup(result string) {
	if m == nil {
		return
	}
	m.signups.WithLabelValues(result).Inc()
}

// Login учитывает попытку входа.
func (m *Metrics) Login(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

// Validation учитывает проверку токена.
func (m *Metrics) Validation(result string) {
	if m == nil {
		return
	}
	m.validations.WithLabelValues(result).Inc()
}

// Logout учитывает попытку выхода.
func (m *Metrics) Logout(result string) {
	if m == nil {
		return
	}
	m.logouts.WithLabelValues(result).Inc()
}

// CacheHit учитывает проверку токена, обслуженную из кэша.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}
