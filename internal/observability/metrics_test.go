package observability

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-exit-engine/internal/domain"
	"solana-exit-engine/internal/executor"
	"solana-exit-engine/internal/solana"
)

func TestMetricsObserver(t *testing.T) {
	m := NewMetrics("test")
	obs := NewMetricsObserver(m)

	a := executor.Attempt{SellID: "s1", Venue: "raydium_launchpad", Number: 1}
	obs.AttemptStarted(a)
	obs.AttemptFinished(a, executor.AttemptResult{Stage: domain.StageBuild, Err: errors.New("x"), Duration: time.Second})
	obs.AttemptFinished(a, executor.AttemptResult{Stage: domain.StageDone, Duration: 2 * time.Second})

	obs.SellFinished(nil, domain.SellOutcome{Success: true, Venue: "jupiter", UsedFallbackVenue: true, AttemptCount: 3, StartedAt: time.Unix(1000, 0), Duration: 5 * time.Second})
	obs.SellFinished(nil, domain.SellOutcome{Venue: "jupiter", UsedFallbackVenue: true, AttemptCount: 3})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SellAttempts.WithLabelValues("raydium_launchpad", domain.StageBuild, "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SellAttempts.WithLabelValues("raydium_launchpad", domain.StageDone, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SellOutcomes.WithLabelValues("jupiter", "success", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SellOutcomes.WithLabelValues("jupiter", "failure", "true")))
	assert.Equal(t, 1005.0, testutil.ToFloat64(m.LastSuccessfulSell))
}

func TestMetrics_Hooks(t *testing.T) {
	m := NewMetrics("test")

	m.ObserveRPCCall("getTransaction", 10*time.Millisecond, nil)
	m.ObserveRPCCall("getTransaction", 10*time.Millisecond, errors.New("timeout"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RPCCallErrors.WithLabelValues("getTransaction")))

	m.ObserveVerifyPoll(1, nil, nil)
	m.ObserveVerifyPoll(2, &solana.SignatureStatus{ConfirmationStatus: solana.StatusProcessed}, nil)
	m.ObserveVerifyPoll(3, &solana.SignatureStatus{ConfirmationStatus: solana.StatusConfirmed}, nil)
	m.ObserveVerifyPoll(4, nil, errors.New("rpc"))
	m.ObserveVerifyPoll(5, &solana.SignatureStatus{ConfirmationStatus: solana.StatusConfirmed, Err: "boom"}, nil)

	for _, label := range []string{"not_found", "processed", "confirmed", "error", "failed"} {
		assert.Equal(t, 1.0, testutil.ToFloat64(m.VerifyPolls.WithLabelValues(label)), label)
	}
}

func TestServer_Endpoints(t *testing.T) {
	m := NewMetrics("test")
	m.StreamNotifications.Inc()
	logger, _ := test.NewNullLogger()
	s := NewServer(":0", m, logger)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	s.SetReady(true)
	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.True(t, strings.Contains(string(body), "test_watcher_notifications_total 1"))
}
