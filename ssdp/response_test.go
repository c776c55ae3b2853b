package ssdp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResponse = "HTTP/1.1 200 OK\r\n" +
	"CACHE-CONTROL: max-age=1800\r\n" +
	"EXT:\r\n" +
	"LOCATION: http://192.168.1.1:49000/rootDesc.xml\r\n" +
	"SERVER: AcmeOS/1.0 UPnP/1.0 AcmeGate/9000\r\n" +
	"ST: upnp:rootdevice\r\n" +
	"USN: uuid:11111111-2222-3333-4444-555555555555::upnp:rootdevice\r\n" +
	"X-Vendor-Extra: hello\r\n" +
	"\r\n"

func TestParseResponse(t *testing.T) {
	r, err := parseResponse([]byte(sampleResponse), nil)
	require.NoError(t, err)

	assert.Equal(t, "http://192.168.1.1:49000/rootDesc.xml", r.Location.String())
	assert.Equal(t, "AcmeOS/1.0 UPnP/1.0 AcmeGate/9000", r.Server)
	assert.Equal(t, "upnp:rootdevice", r.ST)
	assert.Equal(t, "uuid:11111111-2222-3333-4444-555555555555::upnp:rootdevice", r.USN)
	assert.Equal(t, 1800, r.MaxAge)
	// Unrecognised headers survive.
	assert.Equal(t, "hello", r.Headers.Get("X-Vendor-Extra"))

	udn, ok := r.UDN()
	require.True(t, ok)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", udn.String())
}

func TestParseResponseRejectsNon200(t *testing.T) {
	_, err := parseResponse([]byte("HTTP/1.1 404 Not Found\r\n\r\n"), nil)
	assert.Error(t, err)

	_, err = parseResponse([]byte("NOTIFY * HTTP/1.1\r\nHOST: 239.255.255.250:1900\r\n\r\n"), nil)
	assert.Error(t, err)

	_, err = parseResponse([]byte("garbage"), nil)
	assert.Error(t, err)
}

func TestParseResponseWithoutLocation(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nST: ssdp:all\r\nUSN: uuid:x\r\n\r\n"
	r, err := parseResponse([]byte(raw), nil)
	require.NoError(t, err)
	assert.Nil(t, r.Location)

	_, ok := r.UDN()
	assert.False(t, ok)
}

func TestParseMaxAge(t *testing.T) {
	assert.Equal(t, 1800, parseMaxAge("max-age=1800"))
	assert.Equal(t, 120, parseMaxAge("no-cache, MAX-AGE=120"))
	assert.Equal(t, 0, parseMaxAge(""))
	assert.Equal(t, 0, parseMaxAge("max-age=soon"))
	assert.Equal(t, 0, parseMaxAge("max-age=-5"))
}

func TestBuildSearch(t *testing.T) {
	got := string(buildSearch("ssdp:all", 2))
	want := "M-SEARCH * HTTP/1.1\r\n" +
		"HOST: 239.255.255.250:1900\r\n" +
		"MAN: \"ssdp:discover\"\r\n" +
		"MX: 2\r\n" +
		"ST: ssdp:all\r\n" +
		"\r\n"
	assert.Equal(t, want, got)
}

func TestOptionsValidation(t *testing.T) {
	_, err := (&Options{MX: -1}).withDefaults()
	assert.Error(t, err)

	_, err = (&Options{Timeout: 2 * time.Second, MX: 5}).withDefaults()
	assert.Error(t, err)

	eff, err := (&Options{}).withDefaults()
	require.NoError(t, err)
	assert.Equal(t, SearchTargetAll, eff.ST)
	assert.Equal(t, 3, eff.MX)

	eff, err = (&Options{Timeout: 2 * time.Second}).withDefaults()
	require.NoError(t, err)
	assert.Equal(t, 2, eff.MX)
}
