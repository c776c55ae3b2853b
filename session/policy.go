// Package session carries the HTTP-side settings applied to every request a
// device makes: credentials, extra headers, timeout, and TLS trust. Settings
// layer three deep — library defaults, device-level policy, per-call
// overrides — with the shallowest layer winning. A per-call override that
// explicitly passes a nil credential suppresses the device-level one.
package session

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/toaster/digest"

	"grimm.is/upnpc/internal/logging"
)

// DefaultTimeout applies when neither the device policy nor a per-call
// override sets one.
const DefaultTimeout = 30 * time.Second

// Auth is an HTTP credential. Digest selects HTTP digest authentication
// (what TR-064 routers want); otherwise the credential is sent as basic auth.
type Auth struct {
	Username string
	Password string
	Digest   bool
}

// CertPair names a client certificate and key on disk, presented during the
// TLS handshake when the device requires mutual TLS (DeviceProtection).
type CertPair struct {
	CertFile string
	KeyFile  string
}

// Policy holds per-device HTTP settings. The zero value is usable and means
// "library defaults everywhere".
type Policy struct {
	Auth               *Auth
	Headers            http.Header
	Timeout            time.Duration
	AllowSelfSignedSSL bool
	Cert               *CertPair
	SSDPInPort         int
	Logger             *logging.Logger
}

// overlay records which per-call settings were given. Presence is tracked
// separately from value so WithAuth(nil) can suppress a device credential.
type overlay struct {
	auth       *Auth
	authSet    bool
	headers    http.Header
	headersSet bool
	timeout    time.Duration
	timeoutSet bool
	selfSigned *bool
	cert       *CertPair
	certSet    bool
	logger     *logging.Logger
}

// Option is a per-call policy override.
type Option func(*overlay)

// WithAuth overrides the credential for one call. Passing nil sends the
// request unauthenticated even if the device policy has a credential.
func WithAuth(a *Auth) Option {
	return func(o *overlay) {
		o.auth = a
		o.authSet = true
	}
}

// WithHeaders replaces the extra headers for one call.
func WithHeaders(h http.Header) Option {
	return func(o *overlay) {
		o.headers = h
		o.headersSet = true
	}
}

// WithTimeout overrides the request timeout for one call.
func WithTimeout(d time.Duration) Option {
	return func(o *overlay) {
		o.timeout = d
		o.timeoutSet = true
	}
}

// WithAllowSelfSigned relaxes (or reinstates) TLS verification for one call.
func WithAllowSelfSigned(allow bool) Option {
	return func(o *overlay) {
		o.selfSigned = &allow
	}
}

// WithCert overrides the client certificate for one call. Passing nil
// presents no certificate.
func WithCert(c *CertPair) Option {
	return func(o *overlay) {
		o.cert = c
		o.certSet = true
	}
}

// WithLogger overrides the logger for one call.
func WithLogger(l *logging.Logger) Option {
	return func(o *overlay) {
		o.logger = l
	}
}

// Resolve merges per-call options over the receiver and returns the
// effective policy. The receiver may be nil.
func (p *Policy) Resolve(opts ...Option) *Policy {
	var o overlay
	for _, opt := range opts {
		opt(&o)
	}

	eff := Policy{}
	if p != nil {
		eff = *p
	}
	if o.authSet {
		eff.Auth = o.auth
	}
	if o.headersSet {
		eff.Headers = o.headers
	}
	if o.timeoutSet {
		eff.Timeout = o.timeout
	}
	if o.selfSigned != nil {
		eff.AllowSelfSignedSSL = *o.selfSigned
	}
	if o.certSet {
		eff.Cert = o.cert
	}
	if o.logger != nil {
		eff.Logger = o.logger
	}
	if eff.Timeout <= 0 {
		eff.Timeout = DefaultTimeout
	}
	return &eff
}

// HTTPClient builds an HTTP client carrying the policy's transport-level
// settings: timeout, TLS trust, client certificate, and digest credentials.
// Basic credentials and headers ride on individual requests via Apply.
func (p *Policy) HTTPClient() (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if p.AllowSelfSignedSSL || p.Cert != nil {
		tlsCfg := &tls.Config{}
		if p.AllowSelfSignedSSL {
			tlsCfg.InsecureSkipVerify = true
		}
		if p.Cert != nil {
			cert, err := tls.LoadX509KeyPair(p.Cert.CertFile, p.Cert.KeyFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load client certificate: %w", err)
			}
			tlsCfg.Certificates = []tls.Certificate{cert}
		}
		transport.TLSClientConfig = tlsCfg
	}

	var rt http.RoundTripper = transport
	if p.Auth != nil && p.Auth.Digest {
		dt := digest.NewTransport(p.Auth.Username, p.Auth.Password)
		dt.Transport = transport
		rt = dt
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &http.Client{
		Transport: rt,
		Timeout:   timeout,
	}, nil
}

// Apply stamps per-request settings onto req: extra headers first, then the
// basic credential. Digest credentials live in the transport, not here.
func (p *Policy) Apply(req *http.Request) {
	for k, vs := range p.Headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
	if p.Auth != nil && !p.Auth.Digest {
		req.SetBasicAuth(p.Auth.Username, p.Auth.Password)
	}
}

// Log returns the policy's logger, or the library default.
func (p *Policy) Log() *logging.Logger {
	if p != nil && p.Logger != nil {
		return p.Logger
	}
	return logging.Default()
}
