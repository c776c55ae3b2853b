package ssdp

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Response is one SSDP search response, parsed from a single datagram.
// Headers keeps every header the device sent, so vendor extensions survive.
type Response struct {
	// Location points at the device description document. Nil when the
	// device omitted the LOCATION header.
	Location *url.URL

	Server string
	ST     string
	USN    string
	Host   string
	EXT    string

	// MaxAge is the announcement lifetime in seconds, from
	// "CACHE-CONTROL: max-age=". Zero when absent or unparsable.
	MaxAge int

	// From is the source address of the datagram.
	From net.Addr

	Headers http.Header
}

// UDN extracts the device uuid from the USN ("uuid:<udn>::<type>").
func (r *Response) UDN() (uuid.UUID, bool) {
	usn := r.USN
	if rest, ok := strings.CutPrefix(usn, "uuid:"); ok {
		usn = rest
	}
	if i := strings.Index(usn, "::"); i >= 0 {
		usn = usn[:i]
	}
	id, err := uuid.Parse(usn)
	if err != nil {
		return uuid.UUID{}, false
	}
	return id, true
}

func (r *Response) String() string {
	loc := ""
	if r.Location != nil {
		loc = r.Location.String()
	}
	return fmt.Sprintf("ssdp.Response{USN: %q, ST: %q, Location: %q}", r.USN, r.ST, loc)
}

// parseResponse parses one datagram as an HTTP-style SSDP search response.
// Anything other than an "HTTP/1.1 200 OK" status line is rejected.
func parseResponse(data []byte, from net.Addr) (*Response, error) {
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(data)), nil)
	if err != nil {
		return nil, fmt.Errorf("not an HTTP response: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK || resp.ProtoMajor != 1 || resp.ProtoMinor != 1 {
		return nil, fmt.Errorf("unexpected status line %q %q", resp.Proto, resp.Status)
	}

	r := &Response{
		Server:  resp.Header.Get("Server"),
		ST:      resp.Header.Get("ST"),
		USN:     resp.Header.Get("USN"),
		Host:    resp.Header.Get("Host"),
		EXT:     resp.Header.Get("EXT"),
		MaxAge:  parseMaxAge(resp.Header.Get("Cache-Control")),
		From:    from,
		Headers: resp.Header,
	}

	if loc := resp.Header.Get("Location"); loc != "" {
		u, err := url.Parse(loc)
		if err != nil {
			return nil, fmt.Errorf("bad LOCATION header %q: %w", loc, err)
		}
		r.Location = u
	}

	return r, nil
}

// parseMaxAge pulls the max-age value out of a Cache-Control header.
func parseMaxAge(cc string) int {
	for _, part := range strings.Split(cc, ",") {
		part = strings.TrimSpace(part)
		k, v, ok := strings.Cut(part, "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(k), "max-age") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 0 {
			return 0
		}
		return n
	}
	return 0
}
