// Package multicast builds and configures the IPv4 UDP sockets mnc's
// reader and writer stages run on: a receive socket joined to a
// multicast group before it is bound, and a connected send socket ready
// for scatter/gather transmission.
//
// Reference: _examples/original_source/src/multicast.rs, adapted onto
// golang.org/x/net/ipv4 the way
// _examples/malbeclabs-doublezero/mcastrelay/internal/multicast/listener.go
// wraps its connections, and onto golang.org/x/sys/unix sockopts the way
// rcarmo-codebits-tv/internal/mcast/mcast.go sets SO_REUSEADDR/SO_REUSEPORT.
package multicast

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"

	"github.com/weishiuchang/mnc/internal/mncerr"
)

// DefaultSocketBufferSize is the receive buffer mnc asks the kernel for
// (256MiB); the kernel may grant less, which is not an error.
const DefaultSocketBufferSize = 256 * 1024 * 1024

// DefaultTTL is the multicast hop limit used on the send socket unless
// overridden.
const DefaultTTL = 255

// DefaultReadTimeout bounds every blocking receive so the read loop can
// poll a cancellation flag at least this often.
const DefaultReadTimeout = 100 * time.Millisecond

// Endpoint wraps a UDP socket together with its ipv4 control view, which
// is what gives access to ReadBatch/WriteBatch — the Go analogue of
// recvmmsg/sendmmsg.
type Endpoint struct {
	Conn *net.UDPConn
	Pkt  *ipv4.PacketConn
}

// Close releases the underlying socket.
func (e *Endpoint) Close() error {
	if e == nil || e.Conn == nil {
		return nil
	}
	return e.Conn.Close()
}

// RecvConfig configures a receive endpoint.
type RecvConfig struct {
	Logger           *slog.Logger
	InterfaceName    string // optional; empty selects the default-route interface
	MulticastIP      net.IP
	Port             int
	SocketBufferSize int
	ReadTimeout      time.Duration
}

// NewRecvEndpoint creates and joins a receive socket. Steps, in order:
// allocate, enable address reuse, request a large kernel receive buffer,
// resolve the interface's IPv4 address, set it as the multicast outgoing
// interface, join the group (before bind, so traffic is already flowing
// once bind returns), bind to group:port, then set a deadline ReadTimeout
// from now. Go deadlines are absolute and one-shot, so the network reader
// re-arms the read deadline before every ReadBatch to poll for
// cancellation.
func NewRecvEndpoint(cfg RecvConfig) (*Endpoint, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if !cfg.MulticastIP.IsMulticast() {
		return nil, mncerr.Critical("%s is not a multicast address", cfg.MulticastIP)
	}

	ifaceAddr, err := resolveInterfaceAddr(cfg.InterfaceName, cfg.MulticastIP)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, unix.IPPROTO_UDP)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	ownsFD := true
	defer func() {
		if ownsFD {
			unix.Close(fd)
		}
	}()

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return nil, fmt.Errorf("SO_REUSEADDR: %w", err)
	}

	bufSize := cfg.SocketBufferSize
	if bufSize <= 0 {
		bufSize = DefaultSocketBufferSize
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, bufSize); err != nil {
		return nil, mncerr.Critical("failed to set SO_RCVBUF to %d: %v", bufSize, err)
	}
	if actual, gerr := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF); gerr == nil {
		cfg.Logger.Debug("receive buffer", "requested", bufSize, "actual", actual)
	}

	var ifAddr4 [4]byte
	copy(ifAddr4[:], ifaceAddr.To4())
	if err := unix.SetsockoptInet4Addr(fd, unix.IPPROTO_IP, unix.IP_MULTICAST_IF, ifAddr4); err != nil {
		return nil, fmt.Errorf("IP_MULTICAST_IF: %w", err)
	}

	mreq := &unix.IPMreq{}
	copy(mreq.Multiaddr[:], cfg.MulticastIP.To4())
	copy(mreq.Interface[:], ifaceAddr.To4())
	if err := unix.SetsockoptIPMreq(fd, unix.IPPROTO_IP, unix.IP_ADD_MEMBERSHIP, mreq); err != nil {
		return nil, fmt.Errorf("IP_ADD_MEMBERSHIP: %w", err)
	}

	sa := &unix.SockaddrInet4{Port: cfg.Port}
	copy(sa.Addr[:], cfg.MulticastIP.To4())
	if err := unix.Bind(fd, sa); err != nil {
		return nil, fmt.Errorf("bind: %w", err)
	}

	f := os.NewFile(uintptr(fd), "mnc-recv")
	ownsFD = false // f now owns the descriptor
	defer f.Close()

	pc, err := net.FilePacketConn(f)
	if err != nil {
		return nil, fmt.Errorf("FilePacketConn: %w", err)
	}
	udpConn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, mncerr.Critical("unexpected packet conn type %T", pc)
	}

	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	if err := udpConn.SetDeadline(time.Now().Add(readTimeout)); err != nil {
		udpConn.Close()
		return nil, fmt.Errorf("set read deadline: %w", err)
	}

	cfg.Logger.Info("joined multicast group",
		"group", cfg.MulticastIP.String(),
		"port", cfg.Port,
		"interface_addr", ifaceAddr.String(),
	)

	return &Endpoint{Conn: udpConn, Pkt: ipv4.NewPacketConn(udpConn)}, nil
}

// SendConfig configures a send endpoint.
type SendConfig struct {
	Logger        *slog.Logger
	InterfaceName string // optional
	MulticastIP   net.IP
	Port          int
	TTL           uint8
}

// NewSendEndpoint creates a connected send socket: allocate, optionally
// pin the outgoing multicast interface, set the TTL, then connect to
// group:port so scatter/gather sends can omit a per-message destination.
func NewSendEndpoint(cfg SendConfig) (*Endpoint, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if !cfg.MulticastIP.IsMulticast() {
		return nil, mncerr.Critical("%s is not a multicast address", cfg.MulticastIP)
	}

	dest := &net.UDPAddr{IP: cfg.MulticastIP, Port: cfg.Port}

	conn, err := net.DialUDP("udp4", nil, dest)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	pc := ipv4.NewPacketConn(conn)

	if cfg.InterfaceName != "" {
		ifi, err := net.InterfaceByName(cfg.InterfaceName)
		if err != nil {
			conn.Close()
			return nil, mncerr.Critical("interface %s not found: %v", cfg.InterfaceName, err)
		}
		if err := pc.SetMulticastInterface(ifi); err != nil {
			conn.Close()
			return nil, fmt.Errorf("set multicast interface: %w", err)
		}
	}

	ttl := int(cfg.TTL)
	if ttl == 0 {
		ttl = DefaultTTL
	}
	if err := pc.SetMulticastTTL(ttl); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set multicast TTL: %w", err)
	}

	cfg.Logger.Info("connected send socket", "group", cfg.MulticastIP.String(), "port", cfg.Port, "ttl", ttl)

	return &Endpoint{Conn: conn, Pkt: pc}, nil
}

// resolveInterfaceAddr returns the IPv4 address mnc should bind multicast
// traffic to: the named interface's address, or — if no interface is
// named — the address the kernel would pick as the default route to
// mcastIP, discovered the same way the original implementation does: by
// connecting a throwaway UDP socket and reading its local address.
func resolveInterfaceAddr(ifaceName string, mcastIP net.IP) (net.IP, error) {
	if ifaceName != "" {
		return interfaceAddr(ifaceName)
	}
	return defaultRouteAddr(mcastIP)
}

func interfaceAddr(ifaceName string) (net.IP, error) {
	ifi, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return nil, mncerr.Critical("interface %s not found: %v", ifaceName, err)
	}

	addrs, err := ifi.Addrs()
	if err != nil {
		return nil, fmt.Errorf("list addresses for %s: %w", ifaceName, err)
	}

	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		if v4 := ipNet.IP.To4(); v4 != nil {
			return v4, nil
		}
	}

	return nil, mncerr.Critical("interface %s not found or has no IPv4 address", ifaceName)
}

func defaultRouteAddr(mcastIP net.IP) (net.IP, error) {
	conn, err := net.Dial("udp4", net.JoinHostPort(mcastIP.String(), "1"))
	if err != nil {
		return nil, fmt.Errorf("resolve default route: %w", err)
	}
	defer conn.Close()

	local, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return nil, mncerr.Critical("unexpected local address type %T", conn.LocalAddr())
	}

	v4 := local.IP.To4()
	if v4 == nil {
		return nil, mncerr.Critical("IPv6 is not currently supported")
	}

	return v4, nil
}
