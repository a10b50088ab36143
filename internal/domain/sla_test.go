package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfiguration(t *testing.T) {
	cfg := DefaultConfiguration("prod-1", "mod-1", "unknown-issue")

	assert.Equal(t, DefaultResponseMinutes, cfg.ResponseMinutes)
	assert.Equal(t, DefaultResolutionMinutes, cfg.ResolutionMinutes)
	assert.Equal(t, PriorityP2, cfg.Priority)
	assert.Nil(t, cfg.EscalationMinutes)
	assert.True(t, cfg.Active)
}

func TestConfigurationDeadlines(t *testing.T) {
	createdAt := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	cfg := &SLAConfiguration{ResponseMinutes: 90, ResolutionMinutes: 600}

	assert.Equal(t, createdAt.Add(90*time.Minute), cfg.ResponseDeadline(createdAt))
	assert.Equal(t, createdAt.Add(600*time.Minute), cfg.ResolutionDeadline(createdAt))
}

func TestPriorityJSON(t *testing.T) {
	raw, err := json.Marshal(PriorityP1)
	require.NoError(t, err)
	assert.Equal(t, `"P1"`, string(raw))

	var p SLAPriority
	require.NoError(t, json.Unmarshal([]byte(`"P3"`), &p))
	assert.Equal(t, PriorityP3, p)

	require.NoError(t, json.Unmarshal([]byte(`2`), &p))
	assert.Equal(t, PriorityP2, p)

	assert.Error(t, json.Unmarshal([]byte(`"P9"`), &p))
}
