// Package reactor runs the single-threaded, readiness-based event
// loop: one epoll instance, one listening socket, and a map of
// in-flight connections, each driven through ReadyToRead ->
// ReadyToWrite -> Closing by whatever epoll says is ready. Command
// execution against the store never blocks and never spawns a
// goroutine — the only blocking call in the whole loop is the epoll
// wait itself.
package reactor

import (
	"errors"
	"net"
	"time"

	"golang.org/x/sys/unix"

	"github.com/dustin/go-humanize"
	"k8s.io/klog/v2"

	"github.com/rpcpool/redicache/internal/aclfile"
	"github.com/rpcpool/redicache/internal/connection"
	"github.com/rpcpool/redicache/internal/metrics"
	"github.com/rpcpool/redicache/internal/store"
	"github.com/rpcpool/redicache/internal/wire"
)

const (
	backlog       = 1024
	maxEvents     = 256
	pollTimeoutMS = 1000
)

// Reactor owns the listening socket, the epoll instance, and every
// currently accepted connection.
type Reactor struct {
	listenFD int
	epfd     int
	conns    map[int32]*connection.Connection

	store      *store.Store
	acl        *aclfile.Denylist
	collectors *metrics.Collectors

	startedAt time.Time
}

// New creates a listening socket bound to addr and an epoll instance
// watching it, ready for Run to be called.
func New(addr string, st *store.Store, acl *aclfile.Denylist, collectors *metrics.Collectors) (*Reactor, error) {
	ip, port, err := parseListenAddr(addr)
	if err != nil {
		return nil, err
	}
	fd, err := listen(ip, port, backlog)
	if err != nil {
		return nil, err
	}
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	r := &Reactor{
		listenFD:   fd,
		epfd:       epfd,
		conns:      make(map[int32]*connection.Connection),
		store:      st,
		acl:        acl,
		collectors: collectors,
		startedAt:  time.Now(),
	}
	if err := r.epollAdd(int32(fd), unix.EPOLLIN); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// Addr returns the listening socket's bound local address, useful
// when New was called with a ":0" port and the caller needs to learn
// which port the kernel actually assigned.
func (r *Reactor) Addr() (string, error) {
	sa, err := unix.Getsockname(r.listenFD)
	if err != nil {
		return "", err
	}
	return remoteAddrString(sa), nil
}

// Close releases the epoll instance, the listening socket, and every
// still-open connection.
func (r *Reactor) Close() error {
	for fd, c := range r.conns {
		c.Close()
		delete(r.conns, fd)
	}
	unix.Close(r.listenFD)
	return unix.Close(r.epfd)
}

func (r *Reactor) epollAdd(fd int32, events uint32) error {
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, int(fd), &unix.EpollEvent{Fd: fd, Events: events})
}

func (r *Reactor) epollMod(fd int32, events uint32) error {
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, int(fd), &unix.EpollEvent{Fd: fd, Events: events})
}

func (r *Reactor) epollDel(fd int32) error {
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, int(fd), nil)
}

// Run blocks, servicing readiness events, until stop is closed.
func (r *Reactor) Run(stop <-chan struct{}) error {
	events := make([]unix.EpollEvent, maxEvents)
	for {
		select {
		case <-stop:
			return nil
		default:
		}

		n, err := unix.EpollWait(r.epfd, events, pollTimeoutMS)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}
		for i := 0; i < n; i++ {
			fd := events[i].Fd
			if fd == int32(r.listenFD) {
				r.acceptAll()
				continue
			}
			c, ok := r.conns[fd]
			if !ok {
				continue
			}
			r.service(c, events[i].Events)
		}
	}
}

func (r *Reactor) acceptAll() {
	for {
		connFD, sa, err := unix.Accept(r.listenFD)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) {
				return
			}
			klog.Errorf("reactor: accept failed: %v", err)
			return
		}
		remote := remoteAddrString(sa)
		if r.acl != nil {
			host, _, _ := net.SplitHostPort(remote)
			if r.acl.Denied(host) {
				klog.V(2).Infof("reactor: rejecting denylisted peer %s", remote)
				unix.Close(connFD)
				continue
			}
		}
		if err := unix.SetNonblock(connFD, true); err != nil {
			unix.Close(connFD)
			continue
		}
		c := connection.New(connFD, remote)
		r.conns[int32(connFD)] = c
		if err := r.epollAdd(int32(connFD), unix.EPOLLIN); err != nil {
			klog.Errorf("reactor: epoll add failed for %s: %v", remote, err)
			c.Close()
			delete(r.conns, int32(connFD))
			continue
		}
		if r.collectors != nil {
			r.collectors.ConnectionsTotal.Inc()
			r.collectors.ConnectionsActive.Inc()
		}
		klog.V(3).Infof("reactor: accepted %s (id=%s)", remote, c.ID)
	}
}

func (r *Reactor) service(c *connection.Connection, readyEvents uint32) {
	switch c.State {
	case connection.ReadyToRead:
		r.serviceRead(c)
	case connection.ReadyToWrite:
		r.serviceWrite(c)
	}
	if c.State == connection.Closing {
		r.closeConn(c)
	}
}

func (r *Reactor) serviceRead(c *connection.Connection) {
	n, err := c.FillFromSocket()
	if err != nil && !errors.Is(err, unix.EAGAIN) {
		c.State = connection.Closing
		return
	}
	if n == 0 && err == nil {
		c.State = connection.Closing
		return
	}

	cmd, perr := c.TryParseCommand()
	if perr == wire.ErrIncomplete {
		return
	}

	start := time.Now()
	resp, cmdName := r.dispatch(cmd, perr)
	if r.collectors != nil {
		r.collectors.CommandDuration.WithLabelValues(cmdName).Observe(time.Since(start).Seconds())
	}

	frame := wire.Encode(resp)
	c.QueueResponse(frame)
	if err := r.epollMod(int32(c.FD), unix.EPOLLOUT); err != nil {
		c.State = connection.Closing
	}
}

func (r *Reactor) serviceWrite(c *connection.Connection) {
	done, err := c.FlushToSocket()
	if err != nil {
		c.State = connection.Closing
		return
	}
	if done {
		c.State = connection.Closing
	}
}

// dispatch executes a parsed command against the store and returns
// the wire response along with the command name for metrics, handling
// a nil cmd (framing failure before a name could even be read) and a
// known-but-invalid cmd (bad arity / unknown name) the same way
// serviceRead would if it inlined this logic.
func (r *Reactor) dispatch(cmd *wire.Command, parseErr error) (wire.Value, string) {
	if parseErr == wire.ErrFraming {
		r.countResult("malformed", "error")
		return wire.ErrValue(1, "malformed request"), "malformed"
	}
	if parseErr == wire.ErrUnknownCommand {
		r.countResult(cmd.Name, "error")
		return wire.ErrValue(2, "unknown command"), cmd.Name
	}
	if parseErr == wire.ErrWrongArgCount {
		r.countResult(cmd.Name, "error")
		return wire.ErrValue(3, "wrong number of arguments"), cmd.Name
	}

	switch cmd.Name {
	case "GET":
		val, found := r.store.Get(cmd.Key())
		if !found {
			if r.store.NullOnMiss {
				r.countResult("GET", "miss")
				return wire.Null(), "GET"
			}
			r.countResult("GET", "miss")
			return wire.String([]byte("not found")), "GET"
		}
		r.countResult("GET", "hit")
		return wire.String(val), "GET"
	case "SET":
		r.store.Set(cmd.Key(), cmd.Value())
		r.countResult("SET", "ok")
		return wire.Null(), "SET"
	case "DEL":
		existed := r.store.Del(cmd.Key())
		r.countResult("DEL", "ok")
		if existed {
			return wire.Integer(1), "DEL"
		}
		return wire.Integer(0), "DEL"
	case "KEYS":
		keys := r.store.KeySnapshot()
		items := make([]wire.Value, len(keys))
		for i, k := range keys {
			items[i] = wire.String([]byte(k))
		}
		r.countResult("KEYS", "ok")
		return wire.Array(items), "KEYS"
	default:
		r.countResult("unknown", "error")
		return wire.ErrValue(2, "unknown command"), "unknown"
	}
}

func (r *Reactor) countResult(command, result string) {
	if r.collectors == nil {
		return
	}
	r.collectors.CommandsTotal.WithLabelValues(command, result).Inc()
}

func (r *Reactor) closeConn(c *connection.Connection) {
	r.epollDel(int32(c.FD))
	c.Close()
	delete(r.conns, int32(c.FD))
	if r.collectors != nil {
		r.collectors.ConnectionsActive.Dec()
	}
	klog.V(4).Infof("reactor: closed %s after %s", c.RemoteAddr, humanize.Time(r.startedAt))
}
