package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdesk/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STATE_BACKEND", "")
	t.Setenv("REDIS_HOST", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "salesdesk", cfg.App.Name)
	assert.Equal(t, 20*time.Minute, cfg.Schedule.ImmediateBuffer)
	assert.Equal(t, 4*time.Hour, cfg.Schedule.DelayedThreshold)
	assert.Equal(t, 72*time.Hour, cfg.State.TTL)
	assert.Equal(t, BackendMemory, cfg.State.Backend)
	assert.False(t, cfg.Kafka.Enabled())

	spec, err := cfg.Schedule.WindowSpec()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Jerusalem", spec.Open.Zone)
	assert.Equal(t, "11:00", spec.Open.At.String())
	assert.Equal(t, "America/Guatemala", spec.Close.Zone)
	assert.Equal(t, "20:00", spec.Close.At.String())
	assert.Equal(t, time.Sunday, spec.ClosedDay)
}

func TestScheduleWindowSpecErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  ScheduleConfig
	}{
		{"bad open time", ScheduleConfig{OpenTime: "25:00", OpenZone: "UTC", CloseTime: "20:00", CloseZone: "UTC", ClosedDay: "sunday"}},
		{"bad close time", ScheduleConfig{OpenTime: "11:00", OpenZone: "UTC", CloseTime: "8pm", CloseZone: "UTC", ClosedDay: "sunday"}},
		{"unknown day", ScheduleConfig{OpenTime: "11:00", OpenZone: "UTC", CloseTime: "20:00", CloseZone: "UTC", ClosedDay: "funday"}},
		{"missing zone", ScheduleConfig{OpenTime: "11:00", CloseTime: "20:00", CloseZone: "UTC", ClosedDay: "sun"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.WindowSpec()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrConfiguration))
		})
	}
}

func TestValidateRedisBackendNeedsHost(t *testing.T) {
	t.Setenv("STATE_BACKEND", BackendRedis)
	t.Setenv("REDIS_HOST", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_HOST")
}

func TestBlankStateBackendFallsBackToMemory(t *testing.T) {
	t.Setenv("STATE_BACKEND", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.State.Backend)
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STATE_BACKEND", "etcd")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
	assert.Contains(t, err.Error(), "STATE_BACKEND")
}
