// Package upnpc is a client-side library for the UPnP device architecture.
//
// It discovers devices on the local network over SSDP, fetches and parses
// their description documents into a navigable tree, and invokes service
// actions over SOAP with arguments checked against each action's declared
// schema before anything touches the wire.
//
// Typical use:
//
//	responses, err := upnpc.Discover(ctx, upnpc.DiscoverOptions{Timeout: 3 * time.Second})
//	...
//	dev, err := upnpc.FromResponse(ctx, responses[0])
//	...
//	svc, _ := dev.Service("WANIPConn1")
//	action, _ := svc.Action("AddPortMapping")
//	_, err = action.Invoke(ctx, map[string]any{
//		"NewRemoteHost":             "",
//		"NewExternalPort":           12345,
//		"NewProtocol":               "TCP",
//		"NewInternalPort":           12345,
//		"NewInternalClient":         "192.168.1.10",
//		"NewEnabled":                "1",
//		"NewPortMappingDescription": "upnpc",
//		"NewLeaseDuration":          0,
//	})
//
// Devices already known by URL skip discovery via NewDevice. Credentials,
// timeouts and TLS trust are configured per device through session options
// and may be overridden per call.
package upnpc
