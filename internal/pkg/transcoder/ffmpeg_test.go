package transcoder

import (
	"testing"

	"github.com/intervu/intervu/internal/pkg/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFFMpeg(t *testing.T) {
	f, err := NewFFMpeg("ffmpeg")
	assert.Nil(t, err)
	assert.NotNil(t, f)
	_, err = NewFFMpeg("")
	assert.NotNil(t, err)
}

func TestExtractAudio_NoInput(t *testing.T) {
	f, err := NewFFMpeg("ffmpeg")
	require.Nil(t, err)
	_, err = f.ExtractAudio(test.Ctx(t), "")
	assert.NotNil(t, err)
}

func TestExtractAudio_FailsOnMissingBinary(t *testing.T) {
	f, err := NewFFMpeg("no-such-ffmpeg-binary")
	require.Nil(t, err)
	_, err = f.ExtractAudio(test.Ctx(t), "/tmp/in.mp4")
	assert.NotNil(t, err)
}

func Test_lastLine(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{name: "Several", in: "line1\nline2\nfailed here\n", want: "failed here"},
		{name: "One", in: "olia", want: "olia"},
		{name: "Empty", in: "", want: ""},
		{name: "Spaces", in: "a\n  b  \n", want: "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lastLine(tt.in))
		})
	}
}
