package reactor

import (
	"golang.org/x/sys/unix"
)

// listen opens a non-blocking TCP listening socket bound to addr
// (host:port is resolved by the caller into a concrete v4 address and
// port before this is called — the reactor package speaks raw
// sockaddrs, not net.Addr, to stay one level below the net package
// the way the rest of this loop stays one level below mio).
func listen(ip [4]byte, port int, backlog int) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, err
	}
	sa := &unix.SockaddrInet4{Port: port, Addr: ip}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}
