package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSendWithRetrySucceedsOnFirstAttempt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := NewProtectedWebhook(srv.URL, ProtectedWebhookConfig{})
	err := wh.SendWithRetry(context.Background(), []byte(`{}`))
	require.NoError(t, err)
}

func TestSendWithRetryRetriesOnceThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := NewProtectedWebhook(srv.URL, ProtectedWebhookConfig{})
	err := wh.SendWithRetry(context.Background(), []byte(`{}`))
	require.NoError(t, err)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSendWithRetryOpensCircuitAfterThresholdFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	wh := NewProtectedWebhook(srv.URL, ProtectedWebhookConfig{FailureThreshold: 1, Cooldown: time.Hour})

	err := wh.SendWithRetry(context.Background(), []byte(`{}`))
	require.Error(t, err)

	err = wh.SendWithRetry(context.Background(), []byte(`{}`))
	require.ErrorIs(t, err, ErrCircuitOpen, "circuit should fail fast without another network round trip")
}

func TestSendWithRetryHalfOpensAfterCooldownAndRecovers(t *testing.T) {
	var fail int32 = 1
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&fail) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := NewProtectedWebhook(srv.URL, ProtectedWebhookConfig{FailureThreshold: 1, Cooldown: 10 * time.Millisecond})

	err := wh.SendWithRetry(context.Background(), []byte(`{}`))
	require.Error(t, err)

	err = wh.SendWithRetry(context.Background(), []byte(`{}`))
	require.ErrorIs(t, err, ErrCircuitOpen)

	time.Sleep(20 * time.Millisecond)
	atomic.StoreInt32(&fail, 0)

	err = wh.SendWithRetry(context.Background(), []byte(`{}`))
	require.NoError(t, err, "half-open probe should succeed and close the circuit")

	err = wh.SendWithRetry(context.Background(), []byte(`{}`))
	require.NoError(t, err, "circuit should stay closed for subsequent calls")
}
