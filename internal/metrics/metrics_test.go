package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestResult(t *testing.T) {
	assert.Equal(t, ResultSuccess, Result(nil))
	assert.Equal(t, ResultFailure, Result(errors.New("boom")))
}

func TestCommandCounter(t *testing.T) {
	c := POP3CommandsTotal.WithLabelValues("metrics-test")
	before := testutil.ToFloat64(c)
	c.Inc()
	c.Inc()
	assert.Equal(t, before+2, testutil.ToFloat64(c))
}

func TestActiveSessionsGauge(t *testing.T) {
	before := testutil.ToFloat64(POP3ActiveSessions)
	POP3ActiveSessions.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(POP3ActiveSessions))
	POP3ActiveSessions.Dec()
	assert.Equal(t, before, testutil.ToFloat64(POP3ActiveSessions))
}

func TestCollectorsLint(t *testing.T) {
	SMTPMessagesTotal.WithLabelValues(ResultSuccess).Add(0)
	ClientConnectsTotal.WithLabelValues("pop3", ResultSuccess).Add(0)

	for _, c := range []prometheus.Collector{
		POP3SessionsTotal, POP3ActiveSessions, POP3CommandsTotal, ClientConnectsTotal, SMTPMessagesTotal,
	} {
		problems, err := testutil.CollectAndLint(c)
		assert.NoError(t, err)
		assert.Empty(t, problems)
	}
}
