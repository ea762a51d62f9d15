package gpu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePowerPreference(t *testing.T) {
	assert.Equal(t, PowerHighPerformance, ParsePowerPreference("high-performance"))
	assert.Equal(t, PowerHighPerformance, ParsePowerPreference("Discrete"))
	assert.Equal(t, PowerLowPower, ParsePowerPreference("low-power"))
	assert.Equal(t, PowerLowPower, ParsePowerPreference("integrated"))
	assert.Equal(t, PowerAuto, ParsePowerPreference(""))
	assert.Equal(t, PowerAuto, ParsePowerPreference("auto"))
	assert.Equal(t, PowerAuto, ParsePowerPreference("nonsense"))
}

func TestPackWords(t *testing.T) {
	got := packWords([UniformWords]uint32{1, 0x0102, 0, 0xdeadbeef})
	want := []byte{
		1, 0, 0, 0,
		0x02, 0x01, 0, 0,
		0, 0, 0, 0,
		0xef, 0xbe, 0xad, 0xde,
	}
	assert.Equal(t, want, got)
}

func TestContextDescribe(t *testing.T) {
	ctx := poolContext(t)

	desc := ctx.Describe()
	for _, field := range []string{"adapter:", "vendor:", "device:", "type:", "backend:"} {
		assert.Contains(t, desc, field)
	}
	assert.False(t, strings.HasSuffix(desc, "\n"))
}

func TestReadFloatsRoundTrip(t *testing.T) {
	ctx := poolContext(t)

	data := []float32{3.5, -1.25, 0, 42}
	buf, err := ctx.NewStorageBufferInit("round trip", data)
	require.NoError(t, err)
	defer buf.Release()

	got, err := ctx.ReadFloats(buf, len(data))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestReadFloatsPrefix(t *testing.T) {
	ctx := poolContext(t)

	data := []float32{1, 2, 3, 4, 5, 6, 7, 8}
	buf, err := ctx.NewStorageBufferInit("prefix", data)
	require.NoError(t, err)
	defer buf.Release()

	// Reading fewer elements than the buffer holds copies only the prefix.
	got, err := ctx.ReadFloats(buf, 3)
	require.NoError(t, err)
	assert.Equal(t, data[:3], got)
}
