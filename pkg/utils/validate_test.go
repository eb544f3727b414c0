package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTargetURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr string
	}{
		{name: "https", url: "https://example.com/a?b=c#d"},
		{name: "http with port", url: "http://example.com:8080/path"},
		{name: "uppercase scheme", url: "HTTPS://example.com"},
		{name: "empty", url: "", wantErr: "error.target_url_required"},
		{name: "relative", url: "/just/a/path", wantErr: "error.target_url_invalid"},
		{name: "no scheme", url: "example.com/a", wantErr: "error.target_url_invalid"},
		{name: "space", url: "https://exa mple.com", wantErr: "error.target_url_invalid"},
		{name: "ftp", url: "ftp://example.com/file", wantErr: "error.target_url_scheme"},
		{name: "javascript", url: "javascript://alert(1)", wantErr: "error.target_url_scheme"},
		{name: "too long", url: "https://example.com/" + strings.Repeat("a", MaxTargetURLLength), wantErr: "error.target_url_max_length"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTargetURL(tt.url)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestMatchesDomain(t *testing.T) {
	assert.True(t, MatchesDomain("sho.rt", "sho.rt"))
	assert.True(t, MatchesDomain("www.sho.rt", "sho.rt"))
	assert.True(t, MatchesDomain("WWW.Sho.Rt.", "sho.rt"))
	assert.False(t, MatchesDomain("notsho.rt", "sho.rt"))
	assert.False(t, MatchesDomain("sho.rt.evil.com", "sho.rt"))
	assert.True(t, MatchesDomain("127.0.0.1", "127.0.0.1"))
	assert.False(t, MatchesDomain("1.127.0.0.1", "127.0.0.1"))
	assert.False(t, MatchesDomain("", "sho.rt"))
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "example.com", HostOf("https://Example.COM:8443/x"))
	assert.Equal(t, "", HostOf("::bad"))
}
