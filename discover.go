package upnpc

import (
	"context"
	"time"

	"grimm.is/upnpc/internal/logging"
	"grimm.is/upnpc/session"
	"grimm.is/upnpc/ssdp"
)

// DiscoverOptions configures a discovery round and, for DiscoverDevices,
// the session settings used when upgrading responses to full devices.
type DiscoverOptions struct {
	// Timeout is the SSDP listening budget. Defaults to 5 seconds.
	Timeout time.Duration

	// MX is the M-SEARCH response-delay ceiling in seconds; zero picks
	// min(3, Timeout in whole seconds).
	MX int

	// ST is the search target; empty means "ssdp:all".
	ST string

	// SSDPInPort fixes the local UDP port for the search sockets.
	SSDPInPort int

	// AllowSelfSignedSSL and Cert only affect description fetches made
	// while upgrading responses to devices. Discovery itself never
	// opens HTTPS locations.
	AllowSelfSignedSSL bool
	Cert               *session.CertPair

	Logger *logging.Logger
}

// Discover multicasts an M-SEARCH and returns the unique responses
// received within the timeout.
func Discover(ctx context.Context, opts DiscoverOptions) ([]*ssdp.Response, error) {
	return ssdp.Search(ctx, ssdp.Options{
		Timeout: opts.Timeout,
		MX:      opts.MX,
		ST:      opts.ST,
		InPort:  opts.SSDPInPort,
		Logger:  opts.Logger,
	})
}

// DiscoverDevices runs Discover and upgrades every response to a full
// Device. The outer error covers the discovery round itself; per-location
// failures land in errs, index-aligned with nothing — each failed upgrade
// contributes one error and no device. HTTPS locations are skipped: search
// responses cannot be authenticated, so the library does not follow them
// into TLS (the DeviceProtection flow needs an explicit NewDevice call).
func DiscoverDevices(ctx context.Context, opts DiscoverOptions) ([]*Device, []error, error) {
	responses, err := Discover(ctx, opts)
	if err != nil {
		return nil, nil, err
	}

	var devices []*Device
	var errs []error
	for _, r := range responses {
		dev, err := FromResponse(ctx, r, session.WithAllowSelfSigned(opts.AllowSelfSignedSSL), session.WithCert(opts.Cert), session.WithLogger(opts.Logger))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if dev != nil {
			devices = append(devices, dev)
		}
	}
	return devices, errs, nil
}

// FromResponse upgrades one SSDP response to a full Device by fetching its
// description document. Responses without a usable HTTP location yield
// (nil, nil).
func FromResponse(ctx context.Context, r *ssdp.Response, opts ...session.Option) (*Device, error) {
	if r.Location == nil || r.Location.Scheme == "https" {
		return nil, nil
	}
	return NewDevice(ctx, r.Location.String(), opts...)
}
