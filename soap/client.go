// Package soap performs UPnP action control: it marshals arguments into
// SOAP 1.1 envelopes, POSTs them to a service's control URL with the
// SOAPACTION header, and parses the response envelope or fault.
package soap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"grimm.is/upnpc/internal/logging"
	"grimm.is/upnpc/internal/metrics"
	"grimm.is/upnpc/session"
)

// ContentType is the Content-Type every UPnP control request carries.
const ContentType = `text/xml; charset="utf-8"`

// maxResponseBody bounds how much of a response is read into memory.
const maxResponseBody = 2 << 20

// Client invokes actions on one service's control endpoint.
type Client struct {
	// EndpointURL is the absolute control URL.
	EndpointURL string

	// ServiceType namespaces the action element and the SOAPACTION
	// header, e.g. "urn:schemas-upnp-org:service:WANIPConnection:1".
	ServiceType string

	Logger *logging.Logger
}

// NewClient returns a Client bound to a control endpoint.
func NewClient(endpointURL, serviceType string) *Client {
	return &Client{
		EndpointURL: endpointURL,
		ServiceType: serviceType,
		Logger:      logging.Default().WithComponent("soap"),
	}
}

// Call performs one action invocation. in must already be in wire form and
// declaration order. The response's output elements come back as name/value
// pairs in document order; decoding them is the caller's concern.
//
// Errors: *Fault for SOAP faults, *HTTPError for other non-2xx responses,
// *ProtocolError for 2xx responses without the expected element, and
// wrapped transport errors otherwise.
func (c *Client) Call(ctx context.Context, action string, in []Arg, hc *http.Client, pol *session.Policy) ([]Arg, error) {
	envelope, err := buildEnvelope(c.ServiceType, action, in)
	if err != nil {
		return nil, fmt.Errorf("soap: building envelope for %s: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.EndpointURL, bytes.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("soap: bad control URL %q: %w", c.EndpointURL, err)
	}
	req.Header.Set("Content-Type", ContentType)
	req.Header.Set("SOAPACTION", fmt.Sprintf("%q", c.ServiceType+"#"+action))
	if pol != nil {
		pol.Apply(req)
	}

	c.logger().Debug("invoking action", "action", action, "url", c.EndpointURL)
	metrics.Get().SOAPCalls.Inc()

	resp, err := hc.Do(req)
	if err != nil {
		metrics.Get().SOAPTransportErrors.Inc()
		return nil, fmt.Errorf("soap: %s request failed: %w", action, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		metrics.Get().SOAPTransportErrors.Inc()
		return nil, fmt.Errorf("soap: reading %s response: %w", action, err)
	}

	if !statusOK(resp.StatusCode) {
		if fault := parseFault(body, resp.StatusCode); fault != nil {
			metrics.Get().SOAPFaults.Inc()
			c.logger().Debug("action fault", "action", action,
				"status", resp.StatusCode, "errorCode", fault.ErrorCode)
			return nil, fault
		}
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       body,
		}
	}

	out, err := parseResponseEnvelope(body, action)
	if err != nil {
		// A handful of devices fault with status 200.
		if fault := parseFault(body, resp.StatusCode); fault != nil {
			metrics.Get().SOAPFaults.Inc()
			return nil, fault
		}
		return nil, &ProtocolError{Action: action, Reason: err.Error()}
	}
	return out, nil
}

func (c *Client) logger() *logging.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return logging.Default()
}
