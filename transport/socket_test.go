package transport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialPair(t *testing.T) (*Acceptor, *Socket, *Socket) {
	t.Helper()

	acc, err := Listen("127.0.0.1:0", Options{})
	require.NoError(t, err)

	acceptedCh := make(chan *Socket, 1)
	go func() {
		s, err := acc.Accept()
		if err == nil {
			acceptedCh <- s
		}
	}()

	client, err := Dial(context.Background(), acc.Addr().String(), Options{})
	require.NoError(t, err)

	var server *Socket
	select {
	case server = <-acceptedCh:
	case <-time.After(time.Second):
		t.Fatal("timed out accepting connection")
	}

	return acc, client, server
}

func TestSocketWriteAsyncDeliversBytes(t *testing.T) {
	acc, client, server := dialPair(t)
	defer acc.Close()
	defer client.Shutdown()
	defer server.Shutdown()

	var mu sync.Mutex
	var got []byte
	received := make(chan struct{})

	server.SetOnDataReceived(func(data []byte) {
		mu.Lock()
		got = append(got, data...)
		mu.Unlock()
		select {
		case received <- struct{}{}:
		default:
		}
	})

	client.Serve()
	server.Serve()

	require.NoError(t, client.WriteAsync([]byte("hello")))

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for data")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []byte("hello"), got)
}

func TestSocketShutdownFiresOnClosed(t *testing.T) {
	acc, client, server := dialPair(t)
	defer acc.Close()
	defer server.Shutdown()

	closed := make(chan struct{})
	client.SetOnClosed(func(err error) { close(closed) })
	client.Serve()
	server.Serve()

	client.Shutdown()

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("onClosed did not fire")
	}

	assert.False(t, client.IsOpen())
}

func TestSocketWriteAsyncOverflowsWhenChannelFull(t *testing.T) {
	acc, client, server := dialPair(t)
	defer acc.Close()
	defer client.Shutdown()
	defer server.Shutdown()

	// Do not call Serve on client, so nothing drains sendCh; the
	// default channel capacity is small enough to fill quickly.
	var lastErr error
	for i := 0; i < 1000; i++ {
		if err := client.WriteAsync([]byte("x")); err != nil {
			lastErr = err
			break
		}
	}
	require.Error(t, lastErr)
}
