package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seenIP(proxies []string, remoteAddr, realIPHeader string) (string, error) {
	prefixes, err := ParseTrustedProxies(proxies)
	if err != nil {
		return "", err
	}

	var got string
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = realIP(r)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/comments/verify-otp", nil)
	req.RemoteAddr = remoteAddr
	req.Header.Set("X-Real-IP", realIPHeader)
	TrustedRealIP(prefixes)(capture).ServeHTTP(httptest.NewRecorder(), req)
	return got, nil
}

func TestTrustedRealIP_HonoursHeaderFromTrustedProxy(t *testing.T) {
	ip, err := seenIP([]string{"10.0.0.0/8"}, "10.1.2.3:443", "198.51.100.9")
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.9", ip)
}

func TestTrustedRealIP_IgnoresHeaderFromUntrustedPeer(t *testing.T) {
	ip, err := seenIP([]string{"10.0.0.0/8"}, "203.0.113.7:5000", "198.51.100.9")
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", ip)
}

func TestTrustedRealIP_NoProxiesConfigured(t *testing.T) {
	ip, err := seenIP(nil, "10.1.2.3:443", "198.51.100.9")
	require.NoError(t, err)
	assert.Equal(t, "10.1.2.3", ip)
}

func TestTrustedRealIP_SingleAddressEntry(t *testing.T) {
	ip, err := seenIP([]string{"192.0.2.10"}, "192.0.2.10:8080", "198.51.100.9")
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.9", ip)

	ip, err = seenIP([]string{"192.0.2.10"}, "192.0.2.11:8080", "198.51.100.9")
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.11", ip)
}

func TestParseTrustedProxies_RejectsGarbage(t *testing.T) {
	_, err := ParseTrustedProxies([]string{"proxy.internal"})
	assert.Error(t, err)

	_, err = ParseTrustedProxies([]string{"10.0.0.0/99"})
	assert.Error(t, err)
}
