package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewPoolAppliesDefaultsForZeroValues(t *testing.T) {
	p := NewPool(PoolConfig{}, nil, nil)

	require.Equal(t, 2, p.cfg.Concurrency)
	require.Equal(t, 2*time.Second, p.cfg.PollInterval)
	require.Equal(t, 5*time.Minute, p.cfg.LockTTL)
	require.Equal(t, 10*time.Second, p.cfg.ShutdownGrace)
	require.NotNil(t, p.Metrics())
}

func TestNewPoolPreservesExplicitValues(t *testing.T) {
	p := NewPool(PoolConfig{
		Concurrency:   8,
		PollInterval:  time.Second,
		LockTTL:       time.Minute,
		ShutdownGrace: 3 * time.Second,
	}, nil, nil)

	require.Equal(t, 8, p.cfg.Concurrency)
	require.Equal(t, time.Second, p.cfg.PollInterval)
	require.Equal(t, time.Minute, p.cfg.LockTTL)
	require.Equal(t, 3*time.Second, p.cfg.ShutdownGrace)
}

func TestWithPromAttachesRegistryAndReturnsSamePool(t *testing.T) {
	p := NewPool(PoolConfig{}, nil, nil)
	got := p.WithProm(nil)
	require.Same(t, p, got)
}
