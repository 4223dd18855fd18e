// Package netclient implements Parlo's NetworkClient: the engine
// running on top of one transport.Socket that handles framing,
// optional compression/encryption, heartbeating, and graceful
// disconnect for a single connection.
package netclient

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Afr0/parlo/buffer"
	"github.com/Afr0/parlo/cryptopacket"
	"github.com/Afr0/parlo/log"
	"github.com/Afr0/parlo/metrics"
	"github.com/Afr0/parlo/packet"
	"github.com/Afr0/parlo/parloerr"
	"github.com/Afr0/parlo/payloadcodec"
	"github.com/Afr0/parlo/transport"
)

const (
	// DefaultHeartbeatInterval is how often a client sends a heartbeat.
	DefaultHeartbeatInterval = 30 * time.Second
	// MaxMissedHeartbeats is how many consecutive heartbeats may be
	// missed before the connection is declared lost.
	MaxMissedHeartbeats = 6
)

// OnPacketReceived is invoked for each fully-framed application packet.
type OnPacketReceived func(id byte, payload []byte)

// OnConnectionLost is invoked once, from whichever goroutine first
// detects the connection is gone (read error, framing error, or
// missed-heartbeat timeout). It also fires, with a nil error, on a
// graceful close: a local DisconnectAsync or a received Goodbye.
type OnConnectionLost func(err error)

// OnGoodbye is invoked when the peer's Goodbye packet is received,
// before the connection is torn down.
type OnGoodbye func(timeout time.Duration)

// Config configures one NetworkClient's optional transforms.
type Config struct {
	Compression       payloadcodec.Codec // nil disables compression
	CompressionEnable bool
	Crypto            *cryptopacket.Args // nil disables encryption
	HeartbeatInterval time.Duration
	IsServerSide      bool // server-side clients send ServerGoodbye, not ClientGoodbye
}

func (c Config) withDefaults() Config {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	return c
}

// NetworkClient drives one connection: framing its byte stream into
// packets, dispatching them, and maintaining liveness via heartbeats.
type NetworkClient struct {
	sock *transport.Socket
	pb   *buffer.ProcessingBuffer
	cfg  Config

	onPacket  OnPacketReceived
	onLost    OnConnectionLost
	onGoodbye OnGoodbye

	lastHeartbeatSent atomic.Int64 // unix millis
	missedHeartbeats  atomic.Int32
	rttMillis         atomic.Int64

	closeOnce sync.Once
	stopCh    chan struct{}
	wg        sync.WaitGroup

	connectedAt time.Time
}

// New wraps an already-serving transport.Socket (accepted or dialed)
// into a NetworkClient. Caller must not call sock.Serve(); Start does.
func New(sock *transport.Socket, cfg Config) *NetworkClient {
	cfg = cfg.withDefaults()

	c := &NetworkClient{
		sock:        sock,
		cfg:         cfg,
		stopCh:      make(chan struct{}),
		connectedAt: time.Now(),
	}

	c.pb = sock.NewProcessingBuffer()
	c.pb.SetOnPacketProcessed(c.handleFrame)
	c.pb.SetOnFramingError(func(err error) {
		c.fail(err)
	})

	sock.SetOnClosed(func(err error) {
		c.fail(err)
	})

	return c
}

// Connect dials addr and returns a running NetworkClient.
func Connect(ctx context.Context, addr string, cfg Config, opts transport.Options) (*NetworkClient, error) {
	sock, err := transport.Dial(ctx, addr, opts)
	if err != nil {
		return nil, err
	}

	c := New(sock, cfg)
	c.Start()
	return c, nil
}

// SetOnPacketReceived installs the application packet sink.
func (c *NetworkClient) SetOnPacketReceived(cb OnPacketReceived) { c.onPacket = cb }

// SetOnConnectionLost installs the liveness-loss sink.
func (c *NetworkClient) SetOnConnectionLost(cb OnConnectionLost) { c.onLost = cb }

// SetOnGoodbye installs the graceful-disconnect sink.
func (c *NetworkClient) SetOnGoodbye(cb OnGoodbye) { c.onGoodbye = cb }

// RemoteAddr returns the peer's address.
func (c *NetworkClient) RemoteAddr() string { return c.sock.RemoteAddr() }

// RTT returns the last measured round-trip time from heartbeating.
func (c *NetworkClient) RTT() time.Duration {
	return time.Duration(c.rttMillis.Load()) * time.Millisecond
}

// Start begins serving the socket and the heartbeat tasks. Safe to
// call once; New already wires the packet dispatch path.
func (c *NetworkClient) Start() {
	c.sock.Serve()
	c.wg.Add(2)
	go c.heartbeatSenderTask()
	go c.heartbeatMonitorTask()
}

// SendAsync compresses (if warranted) and writes payload under id,
// then enqueues the actual built frame for the send goroutine.
func (c *NetworkClient) SendAsync(id byte, payload []byte) error {
	if len(payload) == 0 {
		return parloerr.New(parloerr.InvalidArgument, "netclient.SendAsync", nil)
	}
	if len(payload) > packet.MaxPacketSize {
		return parloerr.New(parloerr.Overflow, "netclient.SendAsync", nil)
	}
	if !c.sock.IsOpen() {
		return parloerr.New(parloerr.NotConnected, "netclient.SendAsync", nil)
	}

	compressed := false
	body := payload

	if c.cfg.Compression != nil && payloadcodec.ShouldCompress(len(payload), c.RTT().Milliseconds(), c.cfg.CompressionEnable) {
		out, err := c.cfg.Compression.Compress(payload)
		if err != nil {
			return err
		}
		body = out
		compressed = true
	}

	var frame []byte
	if c.cfg.Crypto != nil && id != packet.Heartbeat && id != packet.ServerGoodbye && id != packet.ClientGoodbye {
		p, err := cryptopacket.Build(*c.cfg.Crypto, id, body)
		if err != nil {
			return err
		}
		// Reframe so the outer compressed flag carries the compression state.
		outer, err := packet.New(id, p.Payload(), compressed)
		if err != nil {
			return err
		}
		frame = outer.Build()
	} else {
		p, err := packet.New(id, body, compressed)
		if err != nil {
			return err
		}
		frame = p.Build()
	}

	if err := c.sock.WriteAsync(frame); err != nil {
		return err
	}

	metrics.IncrCounterWithDimGroup("netclient", "packets_sent", 1, metrics.Dimension{"remote": c.RemoteAddr()})
	return nil
}

// DisconnectAsync sends a Goodbye packet and shuts the connection
// down. Idempotent: repeated calls after the first are no-ops.
func (c *NetworkClient) DisconnectAsync() {
	timeout := packet.DefaultClientGoodbyeTimeout
	goodbyeID := packet.ClientGoodbye
	if c.cfg.IsServerSide {
		timeout = packet.DefaultServerGoodbyeTimeout
		goodbyeID = packet.ServerGoodbye
	}

	gb := packet.NewGoodbyePayload(timeout)
	_ = c.SendAsync(goodbyeID, gb.Encode())

	c.shutdown(nil)
}

func (c *NetworkClient) fail(err error) {
	c.shutdown(err)
}

func (c *NetworkClient) shutdown(err error) {
	c.closeOnce.Do(func() {
		close(c.stopCh)
		// shutdown is reached from the buffer's worker (Goodbye, framing
		// error) and from inside the socket's OnClosed callback; pb.Close
		// waits for that worker and sock.Shutdown re-enters the socket's
		// close, so both run on a goroutine of their own.
		go func() {
			c.pb.Close()
			c.sock.Shutdown()
		}()
		if c.onLost != nil {
			c.onLost(err)
		}
	})
}

func (c *NetworkClient) handleFrame(r buffer.Reassembled) {
	switch r.ID {
	case packet.Heartbeat:
		c.handleHeartbeat(r.Payload)
	case packet.ServerGoodbye, packet.ClientGoodbye:
		c.handleGoodbye(r.Payload)
	default:
		c.handleApplicationPacket(r)
	}
}

func (c *NetworkClient) handleApplicationPacket(r buffer.Reassembled) {
	payload := r.Payload
	id := r.ID

	if c.cfg.Crypto != nil {
		decodedID, plaintext, err := cryptopacket.Decode(*c.cfg.Crypto, payload)
		if err != nil {
			log.Error().Str("remote", c.RemoteAddr()).Err(err).Msg("decrypt failed")
			c.fail(err)
			return
		}
		id = decodedID
		payload = plaintext
	}
	if r.CompressedFlag && c.cfg.Compression != nil {
		out, err := c.cfg.Compression.Decompress(payload)
		if err != nil {
			log.Error().Str("remote", c.RemoteAddr()).Err(err).Msg("decompress failed")
			c.fail(err)
			return
		}
		payload = out
	}

	if c.onPacket != nil {
		c.onPacket(id, payload)
	}
}

// handleHeartbeat processes a received heartbeat body, which arrives
// with the reserved id already stripped by the framing layer.
func (c *NetworkClient) handleHeartbeat(body []byte) {
	hb, err := packet.DecodeHeartbeat(body)
	if err != nil {
		log.Warn().Str("remote", c.RemoteAddr()).Err(err).Msg("malformed heartbeat")
		return
	}

	c.missedHeartbeats.Store(0)

	rtt := (time.Now().UnixMilli() - hb.SentTimestamp) + hb.TimeSinceLast
	c.rttMillis.Store(rtt)
	metrics.UpdateGaugeWithGroup("netclient", "heartbeat_rtt_ms", metrics.Value(rtt))
}

func (c *NetworkClient) handleGoodbye(body []byte) {
	gb, err := packet.DecodeGoodbye(body)
	if err != nil {
		log.Warn().Str("remote", c.RemoteAddr()).Err(err).Msg("malformed goodbye")
		c.shutdown(nil)
		return
	}

	if c.onGoodbye != nil {
		c.onGoodbye(gb.Timeout())
	}
	c.shutdown(nil)
}

func (c *NetworkClient) heartbeatSenderTask() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			var delta time.Duration
			if last := c.lastHeartbeatSent.Load(); last != 0 {
				delta = time.Since(time.UnixMilli(last))
			}
			hb := packet.NewHeartbeatPayload(delta)
			c.lastHeartbeatSent.Store(time.Now().UnixMilli())
			if err := c.SendAsync(packet.Heartbeat, hb.Encode()); err != nil {
				return
			}
		}
	}
}

func (c *NetworkClient) heartbeatMonitorTask() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			if c.checkHeartbeatLiveness() {
				c.fail(parloerr.New(parloerr.Transport, "netclient.heartbeatMonitorTask", nil))
				return
			}
		}
	}
}

// checkHeartbeatLiveness increments the missed-heartbeat count on its
// own tick, independent of whether the sender task is making progress,
// and reports whether the connection should now be declared lost.
func (c *NetworkClient) checkHeartbeatLiveness() bool {
	return c.missedHeartbeats.Add(1) > MaxMissedHeartbeats
}
