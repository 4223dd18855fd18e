package transport

import (
	"errors"
	"net"

	"github.com/Afr0/parlo/parloerr"
)

// Acceptor wraps a net.TCPListener, handing each accepted connection
// back as a Socket. Grounded on the accept loop's AcceptTCP + buffer
// sizing pattern, without the uid-handshake step that pattern used for
// its own protocol; Parlo authenticates nothing at the transport layer.
type Acceptor struct {
	listener *net.TCPListener
	opts     Options
}

// Listen opens addr for accepting TCP connections.
func Listen(addr string, opts Options) (*Acceptor, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, parloerr.New(parloerr.Transport, "transport.Listen", err)
	}

	ln, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return nil, parloerr.New(parloerr.Transport, "transport.Listen", err)
	}

	return &Acceptor{listener: ln, opts: opts.withDefaults()}, nil
}

// Accept blocks until a new connection arrives, or the listener is closed.
func (a *Acceptor) Accept() (*Socket, error) {
	conn, err := a.listener.AcceptTCP()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, parloerr.New(parloerr.Transport, "transport.Accept", err)
		}
		return nil, parloerr.New(parloerr.Transport, "transport.Accept", err)
	}

	if a.opts.ReadBufferSize > 0 {
		_ = conn.SetReadBuffer(a.opts.ReadBufferSize)
		_ = conn.SetWriteBuffer(a.opts.ReadBufferSize)
	}

	return New(conn, a.opts), nil
}

// Close stops the listener; any blocked Accept returns an error.
func (a *Acceptor) Close() error {
	return a.listener.Close()
}

// Addr returns the local listening address.
func (a *Acceptor) Addr() net.Addr {
	return a.listener.Addr()
}
