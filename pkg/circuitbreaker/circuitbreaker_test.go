package circuitbreaker

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestNew_TripsAfterConsecutiveFailures(t *testing.T) {
	cfg := DefaultConfig("test")
	cfg.ConsecutiveFailures = 2
	cfg.Timeout = time.Hour
	cb := New[int](cfg, slog.New(slog.DiscardHandler))

	for i := 0; i < 2; i++ {
		_, err := cb.Execute(func() (int, error) { return 0, errBoom })
		require.ErrorIs(t, err, errBoom)
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())
	_, err := cb.Execute(func() (int, error) { return 1, nil })
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestNew_IgnoredErrorsDoNotTrip(t *testing.T) {
	errClient := errors.New("bad request")
	cfg := DefaultConfig("test")
	cfg.ConsecutiveFailures = 1
	cfg.IsSuccessful = func(err error) bool { return err == nil || errors.Is(err, errClient) }
	cb := New[string](cfg, slog.New(slog.DiscardHandler))

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(func() (string, error) { return "", errClient })
		require.ErrorIs(t, err, errClient)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())

	v, err := cb.Execute(func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}
