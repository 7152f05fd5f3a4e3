package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProbeOutput(t *testing.T) {
	out := `{
		"streams": [
			{"codec_type": "video", "codec_name": "vp9"},
			{"codec_type": "audio", "codec_name": "opus", "sample_rate": "48000"}
		],
		"format": {"duration": "31.250000", "size": "204800", "format_name": "matroska,webm"}
	}`

	info, err := parseProbeOutput(out, 1)
	require.NoError(t, err)
	assert.InDelta(t, 31.25, info.Duration, 1e-9)
	assert.Equal(t, "opus", info.Codec)
	assert.Equal(t, 48000, info.SampleRate)
	assert.Equal(t, int64(204800), info.Size)
	assert.Equal(t, "matroska", info.Format)
}

func TestParseProbeOutputFallbacks(t *testing.T) {
	info, err := parseProbeOutput(`{"streams": [], "format": {}}`, 99)
	require.NoError(t, err)
	assert.Zero(t, info.Duration)
	assert.Equal(t, int64(99), info.Size)
	assert.Equal(t, "unknown", info.Format)

	_, err = parseProbeOutput("not json", 0)
	assert.Error(t, err)
}

func TestIsAudio(t *testing.T) {
	assert.True(t, IsAudio("audio/mpeg"))
	assert.True(t, IsAudio("video/webm"))
	assert.False(t, IsAudio("image/png"))
	assert.True(t, HasAllowedExtension("take.WAV", AllowedAudioExtensions))
	assert.False(t, HasAllowedExtension("take.exe", AllowedAudioExtensions))
}
