package buffer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Afr0/parlo/packet"
	"github.com/Afr0/parlo/parloerr"
)

func waitForN(t *testing.T, got *[]Reassembled, mu *sync.Mutex, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		l := len(*got)
		mu.Unlock()
		if l >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d packets", n)
}

func TestProcessingBufferRoundTrip(t *testing.T) {
	pb := New()
	defer pb.Close()

	var mu sync.Mutex
	var got []Reassembled
	pb.SetOnPacketProcessed(func(r Reassembled) {
		mu.Lock()
		got = append(got, r)
		mu.Unlock()
	})

	p, err := packet.New(7, []byte("hello"), false)
	require.NoError(t, err)

	require.NoError(t, pb.AddData(p.Build()))
	waitForN(t, &got, &mu, 1)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, byte(7), got[0].ID)
	assert.False(t, got[0].CompressedFlag)
	assert.Equal(t, []byte("hello"), got[0].Payload)
}

func TestProcessingBufferArbitraryChunking(t *testing.T) {
	pb := New()
	defer pb.Close()

	var mu sync.Mutex
	var got []Reassembled
	pb.SetOnPacketProcessed(func(r Reassembled) {
		mu.Lock()
		got = append(got, r)
		mu.Unlock()
	})

	p1, err := packet.New(1, []byte("abc"), false)
	require.NoError(t, err)
	p2, err := packet.New(2, []byte("defgh"), true)
	require.NoError(t, err)

	stream := append(p1.Build(), p2.Build()...)

	// feed one byte at a time to prove reassembly is independent of
	// how the underlying transport chunks the stream
	for _, b := range stream {
		require.NoError(t, pb.AddData([]byte{b}))
	}

	waitForN(t, &got, &mu, 2)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, byte(1), got[0].ID)
	assert.Equal(t, []byte("abc"), got[0].Payload)
	assert.Equal(t, byte(2), got[1].ID)
	assert.True(t, got[1].CompressedFlag)
	assert.Equal(t, []byte("defgh"), got[1].Payload)
}

func TestProcessingBufferAddDataRejectsOversizedChunk(t *testing.T) {
	pb := New()
	defer pb.Close()

	err := pb.AddData(make([]byte, packet.MaxPacketSize+1))
	require.Error(t, err)
	assert.True(t, parloerr.IsOverflow(err))
	assert.Equal(t, 0, pb.Count())
}

func TestProcessingBufferFramingErrorStopsWorker(t *testing.T) {
	pb := New()
	defer pb.Close()

	errCh := make(chan error, 1)
	pb.SetOnFramingError(func(err error) {
		errCh <- err
	})

	// length field of 0 is smaller than the header itself: impossible frame
	bad := []byte{1, 0, 0, 0}
	require.NoError(t, pb.AddData(bad))

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.True(t, parloerr.IsFraming(err))
	case <-time.After(time.Second):
		t.Fatal("expected a framing error to fire")
	}
}

func TestProcessingBufferCloseStopsWorkerCleanly(t *testing.T) {
	pb := New()
	pb.Close()
	// Close must be idempotent-safe to call once more is not required,
	// but a second AddData after Close should not panic or deadlock.
	assert.NotPanics(t, func() {
		_ = pb.AddData([]byte{1})
	})
}
