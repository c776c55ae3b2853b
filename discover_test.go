package upnpc

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/upnpc/internal/testutil"
	"grimm.is/upnpc/ssdp"
)

func TestFromResponse(t *testing.T) {
	srv := testutil.NewXMLServer(t, igdRoutes)

	loc, err := url.Parse(srv.URL + "/rootDesc.xml")
	require.NoError(t, err)

	dev, err := FromResponse(context.Background(), &ssdp.Response{
		Location: loc,
		USN:      "uuid:11111111-2222-3333-4444-555555555555::upnp:rootdevice",
	})
	require.NoError(t, err)
	require.NotNil(t, dev)
	assert.Equal(t, "uuid:11111111-2222-3333-4444-555555555555", dev.UDN)
	assert.Len(t, dev.AllServices(), 3)
}

func TestFromResponseSkipsHTTPS(t *testing.T) {
	loc, _ := url.Parse("https://192.168.1.1:49443/rootDesc.xml")

	dev, err := FromResponse(context.Background(), &ssdp.Response{Location: loc})
	assert.NoError(t, err)
	assert.Nil(t, dev)
}

func TestFromResponseWithoutLocation(t *testing.T) {
	dev, err := FromResponse(context.Background(), &ssdp.Response{})
	assert.NoError(t, err)
	assert.Nil(t, dev)
}
