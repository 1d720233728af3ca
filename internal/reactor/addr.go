package reactor

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// parseListenAddr resolves a "host:port" string into the raw IPv4
// bytes and port the listener syscalls need. Only net.ResolveTCPAddr
// is used here, for the string parsing; the socket itself is opened
// with raw unix syscalls in listener.go.
func parseListenAddr(addr string) (ip [4]byte, port int, err error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp4", addr)
	if err != nil {
		return ip, 0, err
	}
	v4 := tcpAddr.IP.To4()
	if v4 == nil {
		return ip, 0, fmt.Errorf("reactor: %s does not resolve to an IPv4 address", addr)
	}
	copy(ip[:], v4)
	return ip, tcpAddr.Port, nil
}

// remoteAddrString renders a unix.Sockaddr from Accept as "ip:port"
// for logging and denylist lookups. Non-IPv4 sockaddrs (shouldn't
// occur, since the listener is always AF_INET) render as "unknown".
func remoteAddrString(sa unix.Sockaddr) string {
	v4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return "unknown"
	}
	ip := net.IP(v4.Addr[:])
	return fmt.Sprintf("%s:%d", ip.String(), v4.Port)
}
