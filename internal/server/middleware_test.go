package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIPLimiters_PrunesIdleClients(t *testing.T) {
	l := newIPLimiters(1, 1, time.Minute)
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, l.allow("10.0.0.1", start))
	assert.True(t, l.allow("10.0.0.2", start))
	assert.False(t, l.allow("10.0.0.1", start))
	assert.Equal(t, 2, l.size())

	// 10.0.0.2 stays active, 10.0.0.1 goes idle
	assert.True(t, l.allow("10.0.0.2", start.Add(50*time.Second)))
	assert.True(t, l.allow("10.0.0.3", start.Add(70*time.Second)))
	assert.Equal(t, 2, l.size())

	assert.True(t, l.allow("10.0.0.4", start.Add(10*time.Minute)))
	assert.Equal(t, 1, l.size())
}

func TestIPLimiters_RefillsOverTime(t *testing.T) {
	l := newIPLimiters(1, 1, time.Hour)
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, l.allow("10.0.0.1", start))
	assert.False(t, l.allow("10.0.0.1", start.Add(100*time.Millisecond)))
	assert.True(t, l.allow("10.0.0.1", start.Add(1100*time.Millisecond)))
}
