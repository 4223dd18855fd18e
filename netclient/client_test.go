package netclient

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Afr0/parlo/packet"
	"github.com/Afr0/parlo/parloerr"
	"github.com/Afr0/parlo/transport"
)

func newClientPair(t *testing.T, cfg Config) (*NetworkClient, *NetworkClient, func()) {
	t.Helper()

	acc, err := transport.Listen("127.0.0.1:0", transport.Options{})
	require.NoError(t, err)

	acceptedCh := make(chan *transport.Socket, 1)
	go func() {
		s, err := acc.Accept()
		if err == nil {
			acceptedCh <- s
		}
	}()

	clientSock, err := transport.Dial(context.Background(), acc.Addr().String(), transport.Options{})
	require.NoError(t, err)

	var serverSock *transport.Socket
	select {
	case serverSock = <-acceptedCh:
	case <-time.After(time.Second):
		t.Fatal("timed out accepting")
	}

	serverCfg := cfg
	serverCfg.IsServerSide = true

	server := New(serverSock, serverCfg)
	server.Start()

	client := New(clientSock, cfg)
	client.Start()

	cleanup := func() {
		client.DisconnectAsync()
		server.DisconnectAsync()
		_ = acc.Close()
	}

	return client, server, cleanup
}

func TestSendAsyncDeliversApplicationPacket(t *testing.T) {
	client, server, cleanup := newClientPair(t, Config{HeartbeatInterval: time.Hour})
	defer cleanup()

	received := make(chan struct{})
	var gotID byte
	var gotPayload []byte

	server.SetOnPacketReceived(func(id byte, payload []byte) {
		gotID = id
		gotPayload = append([]byte(nil), payload...)
		close(received)
	})

	require.NoError(t, client.SendAsync(5, []byte("hello world")))

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for packet")
	}

	assert.Equal(t, byte(5), gotID)
	assert.Equal(t, []byte("hello world"), gotPayload)
}

func TestSendAsyncRejectsEmptyPayload(t *testing.T) {
	client, _, cleanup := newClientPair(t, Config{HeartbeatInterval: time.Hour})
	defer cleanup()

	err := client.SendAsync(1, nil)
	require.Error(t, err)
	assert.True(t, parloerr.IsInvalidArgument(err))
}

func TestSendAsyncRejectsOversizedPayload(t *testing.T) {
	client, _, cleanup := newClientPair(t, Config{HeartbeatInterval: time.Hour})
	defer cleanup()

	err := client.SendAsync(1, make([]byte, 2000))
	require.Error(t, err)
	assert.True(t, parloerr.IsOverflow(err))
}

func TestDisconnectAsyncFiresGoodbyeOnPeer(t *testing.T) {
	client, server, cleanup := newClientPair(t, Config{HeartbeatInterval: time.Hour})
	defer cleanup()

	var mu sync.Mutex
	var gotTimeout time.Duration
	goodbyeReceived := make(chan struct{})

	server.SetOnGoodbye(func(timeout time.Duration) {
		mu.Lock()
		gotTimeout = timeout
		mu.Unlock()
		close(goodbyeReceived)
	})

	client.DisconnectAsync()

	select {
	case <-goodbyeReceived:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for goodbye")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 5*time.Second, gotTimeout)
}

func TestHandleHeartbeatComputesRTTFromPeerFields(t *testing.T) {
	client, _, cleanup := newClientPair(t, Config{HeartbeatInterval: time.Hour})
	defer cleanup()

	sentAt := time.Now().Add(-40 * time.Millisecond).UnixMilli()
	hb := packet.HeartbeatPayload{TimeSinceLast: 10, SentTimestamp: sentAt}

	client.handleHeartbeat(hb.Encode())

	rtt := client.RTT().Milliseconds()
	assert.InDelta(t, 50, rtt, 15)
}

func TestHeartbeatMonitorIncrementsIndependentlyOfSender(t *testing.T) {
	client, _, cleanup := newClientPair(t, Config{HeartbeatInterval: time.Hour})
	defer cleanup()

	client.missedHeartbeats.Store(0)
	client.checkHeartbeatLiveness()
	assert.Equal(t, int32(1), client.missedHeartbeats.Load())
}

func TestSendAsyncFailsAfterDisconnect(t *testing.T) {
	client, _, cleanup := newClientPair(t, Config{HeartbeatInterval: time.Hour})
	defer cleanup()

	client.DisconnectAsync()
	time.Sleep(50 * time.Millisecond)

	err := client.SendAsync(1, []byte("x"))
	require.Error(t, err)
	assert.True(t, parloerr.IsNotConnected(err))
}
