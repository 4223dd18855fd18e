// Package transport wraps net.TCPConn/net.TCPListener into the
// callback-driven async socket Parlo's upper layers are built on: one
// dedicated goroutine pair per connection (send/recv), closeOnce
// teardown, and idle-deadline throttling so every Read/Write doesn't
// pay the SetDeadline syscall.
package transport

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/Afr0/parlo/buffer"
	"github.com/Afr0/parlo/log"
	"github.com/Afr0/parlo/parloerr"
)

// deadlineThrottle is how often SetReadDeadline/SetWriteDeadline are
// actually re-armed, rather than on every single I/O call.
const deadlineThrottle = 5 * time.Second

// OnDataReceived is invoked with raw bytes read off the wire, to be
// handed to a ProcessingBuffer.
type OnDataReceived func(data []byte)

// OnClosed is invoked exactly once, right after the underlying
// connection is first closed (by Shutdown, a read error or EOF, or a
// write failure); the read and write goroutines may still be exiting.
type OnClosed func(err error)

// Socket is a single TCP connection driven by two goroutines: one
// reading into an OnDataReceived callback, one draining a bounded send
// channel. Socket does not itself frame data; callers typically route
// OnDataReceived into a *buffer.ProcessingBuffer.
type Socket struct {
	conn net.Conn

	ctx    context.Context
	cancel context.CancelFunc

	sendCh chan []byte

	idleTimeout time.Duration

	lastReadTime  time.Time
	lastWriteTime time.Time

	closeOnce sync.Once

	onData   OnDataReceived
	onClosed OnClosed

	readBufSize int
}

// Options configure a Socket.
type Options struct {
	IdleTimeout     time.Duration
	SendChannelSize int
	ReadBufferSize  int

	// LingerEnabled/LingerTimeout configure SO_LINGER on TCP sockets,
	// giving a final write (typically a Goodbye frame) time to flush
	// before the kernel tears down the connection.
	LingerEnabled bool
	LingerTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.SendChannelSize <= 0 {
		o.SendChannelSize = 64
	}
	if o.ReadBufferSize <= 0 {
		o.ReadBufferSize = 4096
	}
	return o
}

// New wraps an already-established net.Conn (from Dial or Accept).
func New(conn net.Conn, opts Options) *Socket {
	opts = opts.withDefaults()
	applyLinger(conn, opts)

	ctx, cancel := context.WithCancel(context.Background())
	return &Socket{
		conn:        conn,
		ctx:         ctx,
		cancel:      cancel,
		sendCh:      make(chan []byte, opts.SendChannelSize),
		idleTimeout: opts.IdleTimeout,
		readBufSize: opts.ReadBufferSize,
	}
}

func applyLinger(conn net.Conn, opts Options) {
	if !opts.LingerEnabled {
		return
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetLinger(int(opts.LingerTimeout.Seconds()))
	}
}

// Dial opens a new TCP connection to addr.
func Dial(ctx context.Context, addr string, opts Options) (*Socket, error) {
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, parloerr.New(parloerr.Transport, "transport.Dial", err)
	}
	return New(conn, opts), nil
}

// SetOnDataReceived installs the raw-read sink. Must be called before Serve.
func (s *Socket) SetOnDataReceived(cb OnDataReceived) { s.onData = cb }

// SetOnClosed installs the teardown sink. Must be called before Serve.
func (s *Socket) SetOnClosed(cb OnClosed) { s.onClosed = cb }

// Serve starts the read and write goroutines. It does not block.
func (s *Socket) Serve() {
	go s.serveRecv()
	go s.serveSend()
}

// WriteAsync enqueues data for the send goroutine. Returns Overflow if
// the send channel is full, mirroring a saturated per-connection pipe.
func (s *Socket) WriteAsync(data []byte) error {
	select {
	case s.sendCh <- data:
		return nil
	default:
		return parloerr.New(parloerr.Overflow, "transport.WriteAsync", nil)
	}
}

// RemoteAddr returns the peer address, or "" if unknown.
func (s *Socket) RemoteAddr() string {
	if s.conn == nil || s.conn.RemoteAddr() == nil {
		return ""
	}
	return s.conn.RemoteAddr().String()
}

// IsOpen reports whether the socket has not yet been closed.
func (s *Socket) IsOpen() bool {
	select {
	case <-s.ctx.Done():
		return false
	default:
		return true
	}
}

// Shutdown closes both halves of the connection and stops its goroutines.
func (s *Socket) Shutdown() { s.close(nil) }

func (s *Socket) close(err error) {
	s.closeOnce.Do(func() {
		s.cancel()
		_ = s.conn.Close()
		if s.onClosed != nil {
			s.onClosed(err)
		}
	})
}

func (s *Socket) setReadDeadline() {
	if s.idleTimeout <= 0 {
		return
	}
	now := time.Now()
	if now.Sub(s.lastReadTime) > deadlineThrottle {
		s.lastReadTime = now
		_ = s.conn.SetReadDeadline(now.Add(s.idleTimeout))
	}
}

func (s *Socket) setWriteDeadline() {
	if s.idleTimeout <= 0 {
		return
	}
	now := time.Now()
	if now.Sub(s.lastWriteTime) > deadlineThrottle {
		s.lastWriteTime = now
		_ = s.conn.SetWriteDeadline(now.Add(s.idleTimeout))
	}
}

func (s *Socket) serveRecv() {
	defer s.close(nil)

	buf := make([]byte, s.readBufSize)
	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		s.setReadDeadline()
		n, err := s.conn.Read(buf)
		if n > 0 && s.onData != nil {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.onData(chunk)
		}
		if err != nil {
			log.Debug().Str("remote", s.RemoteAddr()).Err(err).Msg("socket read ended")
			return
		}
	}
}

func (s *Socket) serveSend() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case data := <-s.sendCh:
			s.setWriteDeadline()
			if _, err := s.conn.Write(data); err != nil {
				log.Debug().Str("remote", s.RemoteAddr()).Err(err).Msg("socket write failed")
				s.close(parloerr.New(parloerr.Transport, "transport.serveSend", err))
				return
			}
		}
	}
}

// NewProcessingBuffer wires a ProcessingBuffer to this socket's raw
// byte stream; a convenience for the common accept/connect path.
func (s *Socket) NewProcessingBuffer() *buffer.ProcessingBuffer {
	pb := buffer.New()
	s.SetOnDataReceived(func(data []byte) {
		if err := pb.AddData(data); err != nil {
			s.close(err)
		}
	})
	pb.SetOnFramingError(func(err error) {
		s.close(err)
	})
	return pb
}
