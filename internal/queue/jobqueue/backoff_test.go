package jobqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoffSequence(t *testing.T) {
	require.Equal(t, 500*time.Millisecond, Backoff(1))
	require.Equal(t, 1000*time.Millisecond, Backoff(2))
	require.Equal(t, 2000*time.Millisecond, Backoff(3))
}

func TestBackoffClampsBelowFirstAttempt(t *testing.T) {
	require.Equal(t, Backoff(1), Backoff(0))
	require.Equal(t, Backoff(1), Backoff(-5))
}
