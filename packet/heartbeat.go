package packet

import (
	"encoding/binary"
	"time"

	"github.com/Afr0/parlo/parloerr"
)

// HeartbeatPayloadSize is the fixed size of a Heartbeat packet's body:
// two little-endian signed 64-bit milliseconds fields.
const HeartbeatPayloadSize = 16

// HeartbeatPayload is the decoded body of a packet whose id is Heartbeat.
type HeartbeatPayload struct {
	// TimeSinceLast is the elapsed time, in milliseconds, on the sender
	// since its previous heartbeat.
	TimeSinceLast int64
	// SentTimestamp is milliseconds since the Unix epoch at emission.
	SentTimestamp int64
}

// NewHeartbeatPayload stamps the current time as SentTimestamp.
func NewHeartbeatPayload(timeSinceLast time.Duration) HeartbeatPayload {
	return HeartbeatPayload{
		TimeSinceLast: timeSinceLast.Milliseconds(),
		SentTimestamp: time.Now().UnixMilli(),
	}
}

// Encode serializes the payload to its 16-byte wire form.
func (h HeartbeatPayload) Encode() []byte {
	buf := make([]byte, HeartbeatPayloadSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(h.TimeSinceLast))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(h.SentTimestamp))
	return buf
}

// DecodeHeartbeat decodes exactly a 16-byte heartbeat body. The id byte
// is never passed here: ProcessingBuffer/Packet strip it before the
// payload reaches this decoder.
func DecodeHeartbeat(body []byte) (HeartbeatPayload, error) {
	if len(body) != HeartbeatPayloadSize {
		return HeartbeatPayload{}, parloerr.New(parloerr.InvalidArgument, "packet.DecodeHeartbeat", nil)
	}

	return HeartbeatPayload{
		TimeSinceLast: int64(binary.LittleEndian.Uint64(body[0:8])),
		SentTimestamp: int64(binary.LittleEndian.Uint64(body[8:16])),
	}, nil
}
