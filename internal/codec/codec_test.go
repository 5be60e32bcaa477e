package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldmesh/telemetry-core/internal/model"
)

func TestDecodeSensorReadingParsesWireFields(t *testing.T) {
	c := New(nil)
	payload := []byte(`{
		"timestamp": 1000,
		"device_id": "cnc-1",
		"motor_currents": [5.0, 5.1, 4.9],
		"vibration": {"x":1,"y":1,"z":1,"magnitude":1.8},
		"temperatures": [45, 46, 44.5]
	}`)

	r, err := c.DecodeSensorReading(payload)
	require.NoError(t, err)
	assert.Equal(t, "cnc-1", r.DeviceID)
	assert.Equal(t, int64(1000), r.TimestampMs)
	assert.Equal(t, []float32{5.0, 5.1, 4.9}, r.MotorCurrents)
	assert.Equal(t, float32(1.8), r.Vibration.Magnitude)
}

func TestDecodeSensorReadingMalformedJSONIsCounted(t *testing.T) {
	c := New(nil)
	_, err := c.DecodeSensorReading([]byte(`not json`))
	require.Error(t, err)
	assert.Equal(t, int64(1), c.DecodeErrors())
}

func TestDecodeSensorReadingEmptyChannelsIsDropped(t *testing.T) {
	c := New(nil)
	_, err := c.DecodeSensorReading([]byte(`{"device_id":"cnc-1","motor_currents":[],"temperatures":[]}`))
	require.Error(t, err)
	assert.Equal(t, int64(1), c.DecodeErrors())
}

func TestDecodeSafetyStatusParsesWireFields(t *testing.T) {
	c := New(nil)
	payload := []byte(`{"timestamp":500,"device_id":"cnc-1","emergency_stop":false,"door_closed":true,"overload_detected":false,"temperature_ok":true}`)

	s, err := c.DecodeSafetyStatus(payload)
	require.NoError(t, err)
	assert.True(t, s.IsSafe())
}

func TestEncodeAnalysisResultIncludesWireFields(t *testing.T) {
	c := New(nil)
	out, err := c.EncodeAnalysisResult(model.AnalysisResult{
		DeviceID:     "cnc-1",
		Confidence:   0.9,
		Recommendations: []string{"ok"},
	})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"device_id":"cnc-1"`)
	assert.Contains(t, string(out), `"recommendations":["ok"]`)
}
