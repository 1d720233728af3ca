// Package connection models one accepted socket as a small state
// machine driven by the reactor: ReadyToRead until a full request
// frame has arrived, ReadyToWrite until the response has been flushed,
// then Closing. There is no pipelining — a connection processes
// exactly one request and is closed once its response is written.
package connection

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/google/uuid"
	"github.com/rpcpool/redicache/internal/wire"
)

// State is a connection's place in its one-shot request/response
// lifecycle.
type State int

const (
	ReadyToRead State = iota
	ReadyToWrite
	Closing
)

func (s State) String() string {
	switch s {
	case ReadyToRead:
		return "ready_to_read"
	case ReadyToWrite:
		return "ready_to_write"
	case Closing:
		return "closing"
	default:
		return "unknown"
	}
}

// bufSize is 4 bytes of argc header plus the maximum message body.
const bufSize = 4 + wire.MaxMessageSize

// Connection wraps one accepted file descriptor with a fixed-size read
// buffer, the queued response frame, and the state needed to drive it
// through epoll readiness events without blocking.
type Connection struct {
	FD         int
	RemoteAddr string
	ID         uuid.UUID
	State      State

	readBuf [bufSize]byte
	readLen int

	writeBuf []byte
	writeOff int
}

// New wraps fd as a fresh connection ready to read its first request.
func New(fd int, remoteAddr string) *Connection {
	return &Connection{
		FD:         fd,
		RemoteAddr: remoteAddr,
		ID:         uuid.New(),
		State:      ReadyToRead,
	}
}

// Close releases the underlying file descriptor. Safe to call once.
func (c *Connection) Close() error {
	return unix.Close(c.FD)
}

// FillFromSocket reads as much as is available into the read buffer
// without blocking. It returns the number of bytes read and io.EOF-
// style semantics via the raw errno: callers should treat a 0-byte,
// nil-error read as a closed peer.
func (c *Connection) FillFromSocket() (int, error) {
	if c.readLen >= len(c.readBuf) {
		return 0, ErrBufferFull
	}
	n, err := unix.Read(c.FD, c.readBuf[c.readLen:])
	if n > 0 {
		c.readLen += n
	}
	return n, err
}

// TryParseCommand attempts to decode one request frame out of
// whatever has accumulated in the read buffer. wire.ErrIncomplete
// means the caller should keep reading. Any other error means the
// connection must close. On success the consumed bytes are discarded
// from the front of the buffer.
func (c *Connection) TryParseCommand() (*wire.Command, error) {
	cmd, consumed, err := wire.ParseRequest(c.readBuf[:c.readLen])
	if err == wire.ErrIncomplete {
		return nil, wire.ErrIncomplete
	}
	if consumed > 0 {
		remaining := c.readLen - consumed
		if cmd != nil && remaining > 0 {
			// Compacting the buffer below overwrites the bytes cmd.Args
			// points into, so give the command its own copies first.
			for i, a := range cmd.Args {
				cmd.Args[i] = append([]byte(nil), a...)
			}
		}
		copy(c.readBuf[:remaining], c.readBuf[consumed:c.readLen])
		c.readLen = remaining
	}
	if err != nil && err != wire.ErrIncomplete {
		return cmd, err
	}
	return cmd, nil
}

// QueueResponse stores the encoded response frame to be flushed and
// switches the connection into ReadyToWrite.
func (c *Connection) QueueResponse(frame []byte) {
	c.writeBuf = frame
	c.writeOff = 0
	c.State = ReadyToWrite
}

// FlushToSocket writes as much of the queued response as the socket
// accepts without blocking. When the whole frame has been written it
// resets the write buffer and returns true.
func (c *Connection) FlushToSocket() (done bool, err error) {
	for c.writeOff < len(c.writeBuf) {
		n, werr := unix.Write(c.FD, c.writeBuf[c.writeOff:])
		if n > 0 {
			c.writeOff += n
		}
		if werr != nil {
			if errors.Is(werr, unix.EAGAIN) {
				return false, nil
			}
			return false, werr
		}
		if n == 0 {
			return false, nil
		}
	}
	c.writeBuf = nil
	c.writeOff = 0
	return true, nil
}
