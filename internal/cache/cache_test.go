package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testTTLConfig() TTLConfig {
	return TTLConfig{DeviceListSeconds: 5, DeviceDataSeconds: 1, AIAnalysisSeconds: 10, SystemStatusSeconds: 2}
}

func TestGetMissOnEmptyCache(t *testing.T) {
	c := New(testTTLConfig())
	_, ok := c.Get(KindAIAnalysis, "cnc-1")
	assert.False(t, ok)

	hits, misses := c.Stats(KindAIAnalysis)
	assert.Equal(t, int64(0), hits)
	assert.Equal(t, int64(1), misses)
}

func TestSetThenGetIsAHit(t *testing.T) {
	c := New(testTTLConfig())
	c.Set(KindAIAnalysis, "cnc-1", "result")

	value, ok := c.Get(KindAIAnalysis, "cnc-1")
	assert.True(t, ok)
	assert.Equal(t, "result", value)

	hits, misses := c.Stats(KindAIAnalysis)
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(0), misses)
}

func TestEntryExpiresAfterTTL(t *testing.T) {
	now := time.Unix(1000, 0)
	c := New(testTTLConfig()).WithClock(func() time.Time { return now })

	c.Set(KindDeviceData, "cnc-1", "data")
	now = now.Add(2 * time.Second) // device data TTL is 1s

	_, ok := c.Get(KindDeviceData, "cnc-1")
	assert.False(t, ok)
}

func TestKindsAreIndependent(t *testing.T) {
	c := New(testTTLConfig())
	c.Set(KindDeviceList, "default", []string{"a"})

	_, ok := c.Get(KindAIAnalysis, "default")
	assert.False(t, ok)
}

func TestInvalidateClearsDeviceDataAndAIAnalysisOnly(t *testing.T) {
	c := New(testTTLConfig())
	c.Set(KindDeviceData, "cnc-1", "data")
	c.Set(KindAIAnalysis, "cnc-1", "analysis")
	c.Set(KindDeviceList, "default", []string{"cnc-1"})
	c.Set(KindSystemStatus, "default", "status")

	c.Invalidate("cnc-1")

	_, ok := c.Get(KindDeviceData, "cnc-1")
	assert.False(t, ok)
	_, ok = c.Get(KindAIAnalysis, "cnc-1")
	assert.False(t, ok)

	_, ok = c.Get(KindDeviceList, "default")
	assert.True(t, ok)
	_, ok = c.Get(KindSystemStatus, "default")
	assert.True(t, ok)
}
