// Package buffer reassembles an arbitrarily chunked byte stream into
// whole packets, preserving arrival order, on a single dedicated
// worker goroutine.
package buffer

import (
	"encoding/binary"
	"sync"

	"github.com/Afr0/parlo/packet"
	"github.com/Afr0/parlo/parloerr"
)

// Reassembled is one fully framed packet delivered by the worker.
type Reassembled struct {
	ID             byte
	CompressedFlag bool
	Payload        []byte
}

// OnPacketProcessed is invoked synchronously on the worker goroutine
// for every reassembled packet, in stream order. It must not block
// indefinitely.
type OnPacketProcessed func(Reassembled)

// OnFramingError is invoked on the worker goroutine when the stream
// desynchronizes: an impossible header length. The buffer stops
// processing after this fires; the caller is expected to tear down
// the owning connection.
type OnFramingError func(err error)

// ProcessingBuffer is the framing state machine described by the
// Parlo wire format: a byte FIFO plus header-parsing state, drained by
// one worker goroutine per connection.
type ProcessingBuffer struct {
	mu   sync.Mutex
	cond *sync.Cond
	raw  []byte // unconsumed bytes of the stream, in arrival order

	hasHeader             bool
	currentID             byte
	currentCompressedFlag bool
	currentLength         uint16

	stopped bool
	onPacket OnPacketProcessed
	onError  OnFramingError

	wg sync.WaitGroup
}

// New creates a ProcessingBuffer and starts its worker goroutine.
// SetOnPacketProcessed should be called before data arrives.
func New() *ProcessingBuffer {
	pb := &ProcessingBuffer{raw: make([]byte, 0, packet.MaxPacketSize*2)}
	pb.cond = sync.NewCond(&pb.mu)
	pb.wg.Add(1)
	go pb.run()
	return pb
}

// SetOnPacketProcessed installs the per-packet sink.
func (pb *ProcessingBuffer) SetOnPacketProcessed(cb OnPacketProcessed) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.onPacket = cb
}

// SetOnFramingError installs the framing-error sink.
func (pb *ProcessingBuffer) SetOnFramingError(cb OnFramingError) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.onError = cb
}

// AddData appends bytes to the internal FIFO and wakes the worker.
// Fails with Overflow if len(data) > MaxPacketSize; the buffer is left
// unmodified in that case.
func (pb *ProcessingBuffer) AddData(data []byte) error {
	if len(data) > packet.MaxPacketSize {
		return parloerr.New(parloerr.Overflow, "buffer.AddData", nil)
	}

	pb.mu.Lock()
	pb.raw = append(pb.raw, data...)
	pb.mu.Unlock()

	pb.cond.Signal()
	return nil
}

// Count returns the number of unconsumed bytes currently buffered.
func (pb *ProcessingBuffer) Count() int {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return len(pb.raw)
}

// ByteAt returns the byte at logical position i without consuming it,
// for test inspection. ok is false if i is out of range.
func (pb *ProcessingBuffer) ByteAt(i int) (b byte, ok bool) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if i < 0 || i >= len(pb.raw) {
		return 0, false
	}
	return pb.raw[i], true
}

// Close signals the worker to stop and waits for it to exit.
func (pb *ProcessingBuffer) Close() {
	pb.mu.Lock()
	pb.stopped = true
	pb.mu.Unlock()
	pb.cond.Signal()
	pb.wg.Wait()
}

func headerSize() int { return packet.StandardHeaderSize }

func (pb *ProcessingBuffer) run() {
	defer pb.wg.Done()

	for {
		pb.mu.Lock()

		for !pb.stopped && !pb.workAvailableLocked() {
			pb.cond.Wait()
		}

		if pb.stopped && !pb.workAvailableLocked() {
			pb.mu.Unlock()
			return
		}

		if !pb.hasHeader {
			if len(pb.raw) < headerSize() {
				pb.mu.Unlock()
				continue
			}

			id := pb.raw[0]
			compressed := pb.raw[1] != 0
			length := binary.LittleEndian.Uint16(pb.raw[2:4])
			pb.raw = pb.raw[headerSize():]

			if int(length) < headerSize() || int(length) > packet.MaxPacketSize+headerSize() {
				onErr := pb.onError
				pb.stopped = true
				pb.mu.Unlock()
				if onErr != nil {
					onErr(parloerr.New(parloerr.Framing, "buffer.run", nil))
				}
				return
			}

			pb.hasHeader = true
			pb.currentID = id
			pb.currentCompressedFlag = compressed
			pb.currentLength = length
			pb.mu.Unlock()
			continue
		}

		payloadLen := int(pb.currentLength) - headerSize()
		if len(pb.raw) < payloadLen {
			pb.mu.Unlock()
			continue
		}

		payload := make([]byte, payloadLen)
		copy(payload, pb.raw[:payloadLen])
		pb.raw = pb.raw[payloadLen:]

		r := Reassembled{ID: pb.currentID, CompressedFlag: pb.currentCompressedFlag, Payload: payload}
		pb.hasHeader = false
		cb := pb.onPacket
		pb.mu.Unlock()

		if cb != nil {
			cb(r)
		}
	}
}

// workAvailableLocked reports whether the worker can make progress
// given the currently buffered bytes and parse state. Caller must hold pb.mu.
func (pb *ProcessingBuffer) workAvailableLocked() bool {
	if !pb.hasHeader {
		return len(pb.raw) >= headerSize()
	}
	return len(pb.raw) >= int(pb.currentLength)-headerSize()
}
