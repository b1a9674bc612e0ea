// Package metrics holds the Prometheus collectors shared by the POP3 server
// and the mail clients.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// POP3 server metrics
var (
	POP3SessionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailkit_pop3_sessions_total",
			Help: "Total number of POP3 sessions accepted",
		},
	)

	POP3ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mailkit_pop3_active_sessions",
			Help: "Current number of open POP3 sessions",
		},
	)

	POP3CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailkit_pop3_commands_total",
			Help: "Total number of POP3 commands handled",
		},
		[]string{"command"},
	)
)

// Client metrics
var (
	ClientConnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailkit_client_connects_total",
			Help: "Total number of client connection attempts by protocol and result",
		},
		[]string{"protocol", "result"},
	)

	SMTPMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailkit_smtp_messages_total",
			Help: "Total number of messages submitted over SMTP by result",
		},
		[]string{"result"},
	)
)

// Result maps an error to a result label value.
func Result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
