package soap

import (
	"fmt"
	"net/http"
)

// Fault is a SOAP <Fault> returned by a device, usually with HTTP status
// 500 and a UPnP error tucked into <detail>. Any of the fields may be
// empty; devices are sloppy about which parts they fill in.
type Fault struct {
	HTTPStatus       int
	FaultCode        string
	FaultString      string
	ErrorCode        int
	ErrorDescription string
}

func (f *Fault) Error() string {
	if f.ErrorCode != 0 || f.ErrorDescription != "" {
		return fmt.Sprintf("soap: fault %s (%s): UPnP error %d %s",
			f.FaultCode, f.FaultString, f.ErrorCode, f.ErrorDescription)
	}
	return fmt.Sprintf("soap: fault %s (%s)", f.FaultCode, f.FaultString)
}

// HTTPError is a non-2xx response that did not carry a parseable SOAP
// fault. Body keeps the raw payload for diagnosis.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("soap: HTTP error %s", e.Status)
}

// ProtocolError is a syntactically valid HTTP exchange whose SOAP payload
// does not match what the action declared.
type ProtocolError struct {
	Action string
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("soap: bad response to %s: %s", e.Action, e.Reason)
}

// statusOK reports whether code is a 2xx status.
func statusOK(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}
