package validator

import (
	"testing"

	"mediagrab/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allowed = []string{"youtube.com", "youtu.be", "tiktok.com", "x.com", "vimeo.com", "example.org"}

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=abc", "YouTube"},
		{"https://m.youtube.com/watch?v=abc", "YouTube"},
		{"https://youtu.be/abc", "YouTube"},
		{"https://vm.tiktok.com/ZM123/", "TikTok"},
		{"https://x.com/user/status/1", "Twitter"},
		{"HTTPS://VIMEO.COM/123", "Vimeo"},
		{"https://media.example.org/v/1", "example.org"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := DetectPlatform(tt.url, allowed)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectPlatformRejects(t *testing.T) {
	urls := []string{
		"https://netflix.com/title/1",
		"https://youtube.com.evil.io/watch",
		"https://instagram.com/p/1",
		"ftp://youtube.com/file",
		"not a url",
		"",
	}

	for _, u := range urls {
		_, err := DetectPlatform(u, allowed)
		assert.ErrorIs(t, err, model.ErrUnsupportedSource, u)
	}
}

func TestValidateFormatID(t *testing.T) {
	assert.True(t, ValidateFormatID(""))
	assert.True(t, ValidateFormatID("137+140"))
	assert.True(t, ValidateFormatID("bestvideo[height<=720]/best"))
	assert.False(t, ValidateFormatID("18; rm -rf /"))
	assert.False(t, ValidateFormatID("a b"))
	assert.False(t, ValidateFormatID(string(make([]byte, 51))))
}
