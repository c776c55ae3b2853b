// Package ssdp implements the client side of the Simple Service Discovery
// Protocol: multicast M-SEARCH requests and collection of the unicast
// responses within a deadline.
//
// Discovery opens one UDP socket per IPv4-capable interface rather than a
// single wildcard socket. Many kernels only deliver multicast responses on
// the socket whose multicast interface matches the outgoing route, so a
// single socket silently loses devices on multihomed hosts.
package ssdp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/ipv4"

	"grimm.is/upnpc/internal/clock"
	"grimm.is/upnpc/internal/logging"
	"grimm.is/upnpc/internal/metrics"
)

const (
	multicastHost = "239.255.255.250"
	multicastPort = 1900

	// SearchTargetAll asks every device and service to respond.
	SearchTargetAll = "ssdp:all"

	// SearchTargetRootDevice asks only root devices to respond.
	SearchTargetRootDevice = "upnp:rootdevice"

	multicastTTL    = 2
	maxDatagramSize = 8192

	// maxReadInterval bounds how long a receive blocks, so the loop
	// re-checks the global deadline and context at least once a second.
	maxReadInterval = time.Second
)

// ErrNoInterfaces means no usable IPv4 multicast socket could be opened.
var ErrNoInterfaces = errors.New("ssdp: no usable network interfaces")

// Options configures one discovery round.
type Options struct {
	// Timeout is the overall listening budget. Defaults to 5 seconds.
	Timeout time.Duration

	// MX is the response-delay ceiling advertised to devices, in
	// seconds. Zero picks min(3, Timeout); a negative value or one
	// exceeding Timeout is rejected before any socket is opened.
	MX int

	// ST is the search target. Defaults to SearchTargetAll.
	ST string

	// InPort fixes the local UDP port to bind on every interface.
	// Zero binds ephemeral ports.
	InPort int

	Logger *logging.Logger
	Clock  clock.Clock
}

func (o *Options) withDefaults() (Options, error) {
	out := *o
	if out.Timeout <= 0 {
		out.Timeout = 5 * time.Second
	}
	if out.ST == "" {
		out.ST = SearchTargetAll
	}
	timeoutSecs := int(out.Timeout / time.Second)
	if out.MX == 0 {
		out.MX = min(3, timeoutSecs)
	}
	if out.MX < 0 || out.MX > timeoutSecs {
		return out, fmt.Errorf("ssdp: MX %d out of range [0, %d]", out.MX, timeoutSecs)
	}
	if out.InPort < 0 || out.InPort > 65535 {
		return out, fmt.Errorf("ssdp: invalid local port %d", out.InPort)
	}
	if out.Logger == nil {
		out.Logger = logging.Default()
	}
	out.Logger = out.Logger.WithComponent("ssdp")
	if out.Clock == nil {
		out.Clock = &clock.RealClock{}
	}
	return out, nil
}

// buildSearch renders the M-SEARCH request. Line endings and the quoted
// MAN value are load-bearing; devices reject anything else.
func buildSearch(st string, mx int) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "M-SEARCH * HTTP/1.1\r\n")
	fmt.Fprintf(&b, "HOST: %s:%d\r\n", multicastHost, multicastPort)
	fmt.Fprintf(&b, "MAN: \"ssdp:discover\"\r\n")
	fmt.Fprintf(&b, "MX: %d\r\n", mx)
	fmt.Fprintf(&b, "ST: %s\r\n", st)
	fmt.Fprintf(&b, "\r\n")
	return []byte(b.String())
}

// socket is one per-interface discovery socket.
type socket struct {
	conn  net.PacketConn
	iface string
}

// Search sends an M-SEARCH on every usable interface and collects unique
// responses until the timeout expires. Responses are de-duplicated by USN,
// first arrival wins. Per-interface socket failures are tolerated as long
// as at least one socket works.
func Search(ctx context.Context, opts Options) ([]*Response, error) {
	eff, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	sockets, err := openSockets(&eff)
	if err != nil {
		return nil, err
	}

	dest := &net.UDPAddr{IP: net.ParseIP(multicastHost), Port: multicastPort}
	return searchWith(ctx, sockets, dest, &eff)
}

// openSockets opens one multicast-ready UDP socket per interface with a
// routable IPv4 address.
func openSockets(opts *Options) ([]*socket, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("ssdp: listing interfaces: %w", err)
	}

	var sockets []*socket
	var lastErr error
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagMulticast == 0 {
			continue
		}
		ip := interfaceIPv4(iface)
		if ip == nil {
			continue
		}
		s, err := openSocket(iface, ip, opts.InPort)
		if err != nil {
			lastErr = err
			opts.Logger.Warn("skipping interface", "iface", iface.Name, "error", err)
			continue
		}
		opts.Logger.Debug("discovery socket open", "iface", iface.Name, "laddr", s.conn.LocalAddr().String())
		sockets = append(sockets, s)
	}

	if len(sockets) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoInterfaces, lastErr)
		}
		return nil, ErrNoInterfaces
	}
	return sockets, nil
}

// interfaceIPv4 returns the interface's first routable IPv4 address.
func interfaceIPv4(iface net.Interface) net.IP {
	addrs, err := iface.Addrs()
	if err != nil {
		return nil
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipnet.IP.To4()
		if ip == nil || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
			continue
		}
		return ip
	}
	return nil
}

func openSocket(iface net.Interface, ip net.IP, port int) (*socket, error) {
	lc := net.ListenConfig{Control: reuseAddr}
	conn, err := lc.ListenPacket(context.Background(), "udp4", net.JoinHostPort(ip.String(), fmt.Sprintf("%d", port)))
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", ip, err)
	}

	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetMulticastTTL(multicastTTL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set multicast TTL on %s: %w", iface.Name, err)
	}
	if err := pc.SetMulticastInterface(&iface); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set multicast interface %s: %w", iface.Name, err)
	}

	return &socket{conn: conn, iface: iface.Name}, nil
}

// searchWith runs the send/collect cycle over an explicit socket set. All
// sockets are closed before it returns, on every path.
func searchWith(ctx context.Context, sockets []*socket, dest net.Addr, opts *Options) ([]*Response, error) {
	defer func() {
		for _, s := range sockets {
			s.conn.Close()
		}
	}()

	metrics.Get().SSDPSearches.Inc()

	request := buildSearch(opts.ST, opts.MX)
	sent := 0
	for _, s := range sockets {
		if _, err := s.conn.WriteTo(request, dest); err != nil {
			opts.Logger.Warn("M-SEARCH send failed", "iface", s.iface, "error", err)
			continue
		}
		sent++
	}
	if sent == 0 {
		return nil, fmt.Errorf("ssdp: M-SEARCH could not be sent on any interface")
	}

	deadline := opts.Clock.Now().Add(opts.Timeout)

	// One reader per socket; each parks on short read deadlines so it can
	// observe the global deadline and context within a second.
	results := make(chan *Response, 64)
	var wg sync.WaitGroup
	for _, s := range sockets {
		wg.Add(1)
		go func(s *socket) {
			defer wg.Done()
			readLoop(ctx, s, deadline, opts, results)
		}(s)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	byUSN := make(map[string]*Response)
	var order []*Response
	for r := range results {
		if _, dup := byUSN[r.USN]; dup {
			metrics.Get().SSDPDuplicates.Inc()
			opts.Logger.Debug("duplicate response", "usn", r.USN)
			continue
		}
		metrics.Get().SSDPResponses.Inc()
		byUSN[r.USN] = r
		order = append(order, r)
	}

	return order, ctx.Err()
}

func readLoop(ctx context.Context, s *socket, deadline time.Time, opts *Options, results chan<- *Response) {
	buf := make([]byte, maxDatagramSize)
	for {
		if ctx.Err() != nil {
			return
		}
		remaining := deadline.Sub(opts.Clock.Now())
		if remaining <= 0 {
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(min(remaining, maxReadInterval)))

		n, from, err := s.conn.ReadFrom(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return
		}

		r, err := parseResponse(buf[:n], from)
		if err != nil {
			metrics.Get().SSDPBadPackets.Inc()
			opts.Logger.Debug("discarding datagram", "from", from.String(), "error", err)
			continue
		}
		results <- r
	}
}
