package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDefaults(t *testing.T) {
	eff := (*Policy)(nil).Resolve()
	assert.Equal(t, DefaultTimeout, eff.Timeout)
	assert.Nil(t, eff.Auth)
	assert.False(t, eff.AllowSelfSignedSSL)
}

func TestResolveLayering(t *testing.T) {
	device := &Policy{
		Auth:    &Auth{Username: "admin", Password: "hunter2"},
		Timeout: 10 * time.Second,
		Headers: http.Header{"X-Device": {"1"}},
	}

	// No overrides: device layer wins over library defaults.
	eff := device.Resolve()
	require.NotNil(t, eff.Auth)
	assert.Equal(t, "admin", eff.Auth.Username)
	assert.Equal(t, 10*time.Second, eff.Timeout)

	// Per-call override wins over device.
	eff = device.Resolve(WithTimeout(2 * time.Second))
	assert.Equal(t, 2*time.Second, eff.Timeout)
	require.NotNil(t, eff.Auth) // untouched layers persist

	// An explicit nil credential suppresses the device credential.
	eff = device.Resolve(WithAuth(nil))
	assert.Nil(t, eff.Auth)

	// The device policy itself is never mutated.
	assert.NotNil(t, device.Auth)
	assert.Equal(t, 10*time.Second, device.Timeout)
}

func TestApplyBasicAuthAndHeaders(t *testing.T) {
	pol := (&Policy{
		Auth:    &Auth{Username: "u", Password: "p"},
		Headers: http.Header{"X-Extra": {"v"}},
	}).Resolve()

	req := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	pol.Apply(req)

	user, pass, ok := req.BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "u", user)
	assert.Equal(t, "p", pass)
	assert.Equal(t, "v", req.Header.Get("X-Extra"))
}

func TestApplySuppressedAuth(t *testing.T) {
	device := &Policy{Auth: &Auth{Username: "u", Password: "p"}}
	eff := device.Resolve(WithAuth(nil))

	req := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	eff.Apply(req)

	_, _, ok := req.BasicAuth()
	assert.False(t, ok)
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestApplyDigestAuthSkipsHeader(t *testing.T) {
	// Digest credentials ride in the transport; Apply must not add a
	// basic Authorization header for them.
	pol := (&Policy{Auth: &Auth{Username: "u", Password: "p", Digest: true}}).Resolve()

	req := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	pol.Apply(req)
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestHTTPClientTimeout(t *testing.T) {
	hc, err := (&Policy{Timeout: 3 * time.Second}).Resolve().HTTPClient()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, hc.Timeout)

	hc, err = (*Policy)(nil).Resolve().HTTPClient()
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, hc.Timeout)
}

func TestHTTPClientSelfSigned(t *testing.T) {
	hc, err := (&Policy{AllowSelfSignedSSL: true}).Resolve().HTTPClient()
	require.NoError(t, err)

	transport, ok := hc.Transport.(*http.Transport)
	require.True(t, ok)
	require.NotNil(t, transport.TLSClientConfig)
	assert.True(t, transport.TLSClientConfig.InsecureSkipVerify)
}

func TestHTTPClientBadCert(t *testing.T) {
	_, err := (&Policy{Cert: &CertPair{CertFile: "/does/not/exist.pem", KeyFile: "/does/not/exist.key"}}).Resolve().HTTPClient()
	assert.Error(t, err)
}
