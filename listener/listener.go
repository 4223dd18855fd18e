// Package listener implements Parlo's connection acceptor: an accept
// loop that optionally paces itself through a ratelimit.AcceptLimiter,
// wraps each new connection in a netclient.NetworkClient, and tracks
// live clients in a queue.Registry keyed by remote address.
package listener

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Afr0/parlo/log"
	"github.com/Afr0/parlo/metrics"
	"github.com/Afr0/parlo/netclient"
	"github.com/Afr0/parlo/queue"
	"github.com/Afr0/parlo/ratelimit"
	"github.com/Afr0/parlo/transport"
)

// OnClientConnected is invoked for every newly accepted client, after
// it has been registered and started.
type OnClientConnected func(c *netclient.NetworkClient)

// OnClientDisconnected is invoked once a tracked client's connection
// is lost or gracefully closed, after it has been deregistered.
type OnClientDisconnected func(c *netclient.NetworkClient, err error)

// Config configures a Listener.
type Config struct {
	Addr          string
	ClientConfig  netclient.Config
	SocketOptions transport.Options
	AcceptLimiter ratelimit.AcceptLimiter // nil disables pacing
	Metrics       *metrics.ParloMetrics   // nil disables metrics recording
}

// Listener accepts connections on one address and hands each to a
// NetworkClient, tracked in a Registry by remote address.
type Listener struct {
	cfg      Config
	acceptor *transport.Acceptor
	clients  *queue.Registry[string, *netclient.NetworkClient]

	onConnected    OnClientConnected
	onDisconnected OnClientDisconnected

	accepting atomic.Bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// New opens cfg.Addr for accepting connections. The accept loop does
// not start until Start is called.
func New(cfg Config) (*Listener, error) {
	if !cfg.SocketOptions.LingerEnabled && cfg.SocketOptions.LingerTimeout == 0 {
		cfg.SocketOptions.LingerEnabled = true
		cfg.SocketOptions.LingerTimeout = lingerGrace
	}

	acc, err := transport.Listen(cfg.Addr, cfg.SocketOptions)
	if err != nil {
		return nil, err
	}

	l := &Listener{
		cfg:      cfg,
		acceptor: acc,
		clients:  queue.NewRegistry[string, *netclient.NetworkClient](),
		stopCh:   make(chan struct{}),
	}
	l.accepting.Store(true)
	return l, nil
}

// SetOnClientConnected installs the accept-side hook.
func (l *Listener) SetOnClientConnected(cb OnClientConnected) { l.onConnected = cb }

// SetOnClientDisconnected installs the deregistration hook.
func (l *Listener) SetOnClientDisconnected(cb OnClientDisconnected) { l.onDisconnected = cb }

// Addr returns the local listening address.
func (l *Listener) Addr() string { return l.acceptor.Addr().String() }

// ClientCount returns the number of currently tracked clients.
func (l *Listener) ClientCount() int { return l.clients.Len() }

// Client looks up a tracked client by its remote address.
func (l *Listener) Client(remoteAddr string) (*netclient.NetworkClient, bool) {
	return l.clients.Get(remoteAddr)
}

// StopAccepting pauses the accept loop without closing already
// established connections.
func (l *Listener) StopAccepting() { l.accepting.Store(false) }

// StartAccepting resumes a paused accept loop.
func (l *Listener) StartAccepting() { l.accepting.Store(true) }

// Start runs the accept loop in a new goroutine. It does not block.
func (l *Listener) Start() {
	l.wg.Add(1)
	go l.acceptLoop()
}

// Close stops the accept loop and the underlying listener. Tracked
// clients are not forcibly disconnected.
func (l *Listener) Close() error {
	close(l.stopCh)
	err := l.acceptor.Close()
	l.wg.Wait()
	return err
}

func (l *Listener) acceptLoop() {
	defer l.wg.Done()

	for {
		select {
		case <-l.stopCh:
			return
		default:
		}

		if l.cfg.AcceptLimiter != nil {
			if err := l.cfg.AcceptLimiter.Take(context.Background()); err != nil {
				continue
			}
		}

		sock, err := l.acceptor.Accept()
		if err != nil {
			select {
			case <-l.stopCh:
				return
			default:
				log.Warn().Err(err).Msg("accept failed")
				continue
			}
		}

		if !l.accepting.Load() {
			sock.Shutdown()
			continue
		}

		l.onAccepted(sock)
	}
}

func (l *Listener) onAccepted(sock *transport.Socket) {
	remote := sock.RemoteAddr()

	cfg := l.cfg.ClientConfig
	cfg.IsServerSide = true

	c := netclient.New(sock, cfg)
	c.SetOnConnectionLost(func(err error) {
		l.clients.Remove(remote)
		if l.cfg.Metrics != nil {
			l.cfg.Metrics.RecordConnectionClosed()
			if err != nil {
				l.cfg.Metrics.RecordError("connection_lost")
			}
		}
		if l.onDisconnected != nil {
			l.onDisconnected(c, err)
		}
	})

	l.clients.Add(remote, c)
	c.Start()

	if l.cfg.Metrics != nil {
		l.cfg.Metrics.RecordConnectionOpened()
	}

	if l.onConnected != nil {
		l.onConnected(c)
	}
}

// lingerGrace is the linger duration applied before a forced close,
// giving a final Goodbye frame time to flush.
const lingerGrace = 5 * time.Second
