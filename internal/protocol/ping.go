package protocol

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"strconv"
	"sync"
	"syscall"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// HostChecker decides whether a host is worth probing.
type HostChecker interface {
	Check(ctx context.Context, address string) error
}

// defaultFallbackPorts are connected to when ICMP sockets are not permitted.
var defaultFallbackPorts = []uint16{443, 80, 22}

// Pinger checks host availability with an ICMP echo request.
//
// Unprivileged ICMP ("udp4" ping sockets) depends on the
// net.ipv4.ping_group_range sysctl. When the socket cannot be opened, or for
// IPv6 targets, Pinger falls back to TCP connects: an accepted or refused
// connection both prove that the host is up.
type Pinger struct {
	timeout       time.Duration
	fallbackPorts []uint16
	listen        func() (*icmp.PacketConn, error)
}

// PingerOption configures a Pinger.
type PingerOption func(*Pinger)

// WithPingTimeout sets the total time budget of one check.
func WithPingTimeout(timeout time.Duration) PingerOption {
	return func(p *Pinger) {
		p.timeout = timeout
	}
}

// WithFallbackPorts sets the TCP ports used when ICMP is unavailable.
func WithFallbackPorts(ports ...uint16) PingerOption {
	return func(p *Pinger) {
		p.fallbackPorts = ports
	}
}

// WithoutICMP forces the TCP fallback.
func WithoutICMP() PingerOption {
	return func(p *Pinger) {
		p.listen = func() (*icmp.PacketConn, error) {
			return nil, errors.New("icmp disabled")
		}
	}
}

// NewPinger creates a Pinger.
func NewPinger(opts ...PingerOption) *Pinger {
	p := &Pinger{
		timeout:       2 * time.Second,
		fallbackPorts: defaultFallbackPorts,
		listen: func() (*icmp.PacketConn, error) {
			return icmp.ListenPacket("udp4", "0.0.0.0")
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Check returns nil when the host answered.
func (p *Pinger) Check(ctx context.Context, address string) error {
	ip, err := resolveHost(ctx, address)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if ip.Is4() {
		conn, err := p.listen()
		if err == nil {
			defer conn.Close()
			return p.echo(ctx, conn, ip)
		}
	}
	return p.connect(ctx, ip)
}

func resolveHost(ctx context.Context, address string) (netip.Addr, error) {
	if ip, err := netip.ParseAddr(address); err == nil {
		return ip.Unmap(), nil
	}
	ips, err := net.DefaultResolver.LookupNetIP(ctx, "ip", address)
	if err != nil {
		return netip.Addr{}, err
	}
	if len(ips) == 0 {
		return netip.Addr{}, fmt.Errorf("no address for %s", address)
	}
	return ips[0].Unmap(), nil
}

// echo sends one echo request and waits for the reply of ip.
func (p *Pinger) echo(ctx context.Context, conn *icmp.PacketConn, ip netip.Addr) error {
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return err
		}
	}

	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   os.Getpid() & 0xffff,
			Seq:  1,
			Data: []byte("powerdisco"),
		},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		return err
	}

	peer := &net.UDPAddr{IP: ip.AsSlice()}
	if _, err := conn.WriteTo(wb, peer); err != nil {
		return err
	}

	rb := make([]byte, 1500)
	for {
		n, from, err := conn.ReadFrom(rb)
		if err != nil {
			return err
		}
		rm, err := icmp.ParseMessage(ipv4.ICMPTypeEcho.Protocol(), rb[:n])
		if err != nil {
			continue
		}
		// Ping sockets rewrite the echo id, so replies are matched by peer.
		if rm.Type == ipv4.ICMPTypeEchoReply && sameIP(from, ip) {
			return nil
		}
	}
}

func sameIP(addr net.Addr, ip netip.Addr) bool {
	var other net.IP
	switch a := addr.(type) {
	case *net.UDPAddr:
		other = a.IP
	case *net.IPAddr:
		other = a.IP
	default:
		return false
	}
	o, ok := netip.AddrFromSlice(other)
	return ok && o.Unmap() == ip
}

// connect dials every fallback port concurrently; the first proof of life wins.
func (p *Pinger) connect(ctx context.Context, ip netip.Addr) error {
	if len(p.fallbackPorts) == 0 {
		return errors.New("no fallback ports")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg      sync.WaitGroup
		once    sync.Once
		alive   = make(chan struct{})
		dialer  net.Dialer
		lastErr error
		mu      sync.Mutex
	)
	for _, port := range p.fallbackPorts {
		wg.Go(func() {
			addr := net.JoinHostPort(ip.String(), strconv.Itoa(int(port)))
			conn, err := dialer.DialContext(ctx, "tcp", addr)
			if err == nil {
				_ = conn.Close()
			}
			if err == nil || errors.Is(err, syscall.ECONNREFUSED) {
				once.Do(func() { close(alive) })
				return
			}
			mu.Lock()
			lastErr = err
			mu.Unlock()
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-alive:
		return nil
	case <-done:
		select {
		case <-alive:
			return nil
		default:
		}
		mu.Lock()
		defer mu.Unlock()
		return lastErr
	}
}
