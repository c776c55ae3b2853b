package upnpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/upnpc/internal/testutil"
)

var igdRoutes = map[string]string{
	"/rootDesc.xml":     "testdata/rootDesc.xml",
	"/L3Forwarding.xml": "testdata/L3Forwarding.xml",
	"/WANCommonIFC.xml": "testdata/WANCommonIFC.xml",
	"/WANIPConn.xml":    "testdata/WANIPConn.xml",
}

func igdDevice(t *testing.T) (*Device, *testutil.XMLServer) {
	t.Helper()
	srv := testutil.NewXMLServer(t, igdRoutes)
	dev, err := NewDevice(context.Background(), srv.URL+"/rootDesc.xml")
	require.NoError(t, err)
	return dev, srv
}

func TestNewDeviceParsesTree(t *testing.T) {
	dev, _ := igdDevice(t)

	assert.Equal(t, "uuid:11111111-2222-3333-4444-555555555555", dev.UDN)
	assert.Equal(t, "Test Internet Gateway", dev.FriendlyName)
	assert.Equal(t, "Acme Networks", dev.Manufacturer)
	assert.Equal(t, "AcmeGate 9000", dev.ModelName)
	assert.Equal(t, "urn:schemas-upnp-org:device:InternetGatewayDevice:1", dev.DeviceType)
	assert.Equal(t, "012345678905", dev.UPC)
	assert.Equal(t, "A90-000042", dev.SerialNumber)
	assert.Equal(t, "http://192.168.1.1/", dev.PresentationURL)

	// One embedded WANDevice, which embeds a WANConnectionDevice.
	require.Len(t, dev.Embedded, 1)
	require.Len(t, dev.Embedded[0].Embedded, 1)

	services := dev.AllServices()
	require.Len(t, services, 3)
	assert.Equal(t, "urn:upnp-org:serviceId:Layer3Forwarding1", services[0].ServiceID)
	assert.Equal(t, "urn:upnp-org:serviceId:WANCommonIFC1", services[1].ServiceID)
	assert.Equal(t, "urn:upnp-org:serviceId:WANIPConn1", services[2].ServiceID)
}

func TestURLBaseDefaultsToLocation(t *testing.T) {
	dev, srv := igdDevice(t)

	// The document has no <URLBase>, so URLs resolve against the
	// description URL with its path stripped to the last slash.
	svc, ok := dev.Service("WANIPConn1")
	require.True(t, ok)
	assert.Equal(t, srv.URL+"/WANIPConn.xml", svc.SCPDURL.String())
	assert.Equal(t, srv.URL+"/ctl/WANIPConn", svc.ControlURL.String())
	assert.Equal(t, srv.URL+"/evt/WANIPConn", svc.EventSubURL.String())
}

func TestServiceLookupForms(t *testing.T) {
	dev, _ := igdDevice(t)

	full, ok := dev.Service("urn:upnp-org:serviceId:WANIPConn1")
	require.True(t, ok)
	short, ok := dev.Service("WANIPConn1")
	require.True(t, ok)

	// All forms resolve to the same service.
	assert.Same(t, full, short)

	_, ok = dev.Service("NoSuchService")
	assert.False(t, ok)

	byType, ok := dev.ServiceByType("urn:schemas-upnp-org:service:WANCommonInterfaceConfig:1")
	require.True(t, ok)
	assert.Equal(t, "urn:upnp-org:serviceId:WANCommonIFC1", byType.ServiceID)
}

func TestActionSignature(t *testing.T) {
	dev, _ := igdDevice(t)
	svc, _ := dev.Service("WANIPConn1")
	action, ok := svc.Action("AddPortMapping")
	require.True(t, ok)

	wantOrder := []string{
		"NewRemoteHost", "NewExternalPort", "NewProtocol", "NewInternalPort",
		"NewInternalClient", "NewEnabled", "NewPortMappingDescription", "NewLeaseDuration",
	}
	require.Len(t, action.ArgsIn, len(wantOrder))
	for i, def := range action.ArgsIn {
		assert.Equal(t, wantOrder[i], def.Name, "in-arg %d", i)
	}

	byName := map[string]*ArgDef{}
	for _, def := range action.ArgsIn {
		byName[def.Name] = def
	}
	assert.Equal(t, "ui2", byName["NewExternalPort"].Datatype)
	assert.Equal(t, []string{"TCP", "UDP"}, byName["NewProtocol"].AllowedValues)
	assert.Equal(t, "boolean", byName["NewEnabled"].Datatype)
	require.NotNil(t, byName["NewLeaseDuration"].AllowedRange)
	assert.Equal(t, "604800", byName["NewLeaseDuration"].AllowedRange.Max)
}

func TestEveryArgumentHasDatatype(t *testing.T) {
	dev, _ := igdDevice(t)

	for _, svc := range dev.AllServices() {
		seenActions := map[string]bool{}
		for _, action := range svc.Actions {
			assert.False(t, seenActions[action.Name], "duplicate action %s", action.Name)
			seenActions[action.Name] = true

			for _, def := range append(append([]*ArgDef{}, action.ArgsIn...), action.ArgsOut...) {
				assert.NotEmpty(t, def.Datatype, "%s.%s.%s", svc.ServiceID, action.Name, def.Name)
				_, ok := svc.StateVars[def.RelatedStateVar]
				assert.True(t, ok, "dangling state variable for %s.%s", action.Name, def.Name)
			}
		}
	}
}

func TestStateVariables(t *testing.T) {
	dev, _ := igdDevice(t)
	svc, _ := dev.Service("WANIPConn1")

	sv, ok := svc.StateVars["ConnectionStatus"]
	require.True(t, ok)
	assert.True(t, sv.SendEvents)
	assert.Contains(t, sv.AllowedValues, "Connected")

	sv, ok = svc.StateVars["ExternalPort"]
	require.True(t, ok)
	assert.False(t, sv.SendEvents)
	assert.Equal(t, "ui2", sv.Datatype)
}

func TestFindAction(t *testing.T) {
	dev, _ := igdDevice(t)

	action, ok := dev.FindAction("GetExternalIPAddress")
	require.True(t, ok)
	assert.Equal(t, "urn:upnp-org:serviceId:WANIPConn1", action.Service().ServiceID)

	_, ok = dev.FindAction("NoSuchAction")
	assert.False(t, ok)

	assert.NotEmpty(t, dev.Actions())
}

func TestDanglingStateVariableIsParseError(t *testing.T) {
	srv := testutil.NewXMLServer(t, map[string]string{
		"/rootDesc.xml":     "testdata/rootDesc.xml",
		"/L3Forwarding.xml": "testdata/L3Forwarding.xml",
		"/WANCommonIFC.xml": "testdata/WANCommonIFC.xml",
		// An SCPD whose action references a state variable the
		// document never declares.
		"/WANIPConn.xml": "testdata/BrokenSCPD.xml",
	})

	_, err := NewDevice(context.Background(), srv.URL+"/rootDesc.xml")
	require.Error(t, err)

	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestNewDeviceBadURL(t *testing.T) {
	_, err := NewDevice(context.Background(), "http://127.0.0.1:1/rootDesc.xml")
	assert.Error(t, err)
}

func TestSanitizeKey(t *testing.T) {
	assert.Equal(t, "WANIPConn1", sanitizeKey("WANIPConn1"))
	assert.Equal(t, "Dimming1", sanitizeKey("Dimming.1"))
	assert.Equal(t, "_1stService", sanitizeKey("1st-Service"))
	assert.Equal(t, "", sanitizeKey("..."))
}
