package packet

import (
	"encoding/binary"
	"time"

	"github.com/Afr0/parlo/parloerr"
)

// GoodbyePayloadSize is the fixed size of a Goodbye packet's body.
const GoodbyePayloadSize = 16

// Default grace timeouts, named per original_source/GoodbyePacket.h's
// ParloDefaultTimeouts rather than bare literals.
const (
	DefaultServerGoodbyeTimeout = 60 * time.Second
	DefaultClientGoodbyeTimeout = 5 * time.Second
)

// GoodbyePayload is the decoded body of a packet whose id is
// ServerGoodbye or ClientGoodbye.
type GoodbyePayload struct {
	// TimeoutSeconds is the grace period the sender will honor before
	// closing unilaterally.
	TimeoutSeconds int64
	// SentTimeSeconds is seconds since the Unix epoch at emission.
	SentTimeSeconds int64
}

// NewGoodbyePayload stamps the current time as SentTimeSeconds.
func NewGoodbyePayload(timeout time.Duration) GoodbyePayload {
	return GoodbyePayload{
		TimeoutSeconds:  int64(timeout.Seconds()),
		SentTimeSeconds: time.Now().Unix(),
	}
}

// Encode serializes the payload to its 16-byte wire form.
func (g GoodbyePayload) Encode() []byte {
	buf := make([]byte, GoodbyePayloadSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(g.TimeoutSeconds))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(g.SentTimeSeconds))
	return buf
}

// DecodeGoodbye decodes exactly a 16-byte goodbye body.
func DecodeGoodbye(body []byte) (GoodbyePayload, error) {
	if len(body) != GoodbyePayloadSize {
		return GoodbyePayload{}, parloerr.New(parloerr.InvalidArgument, "packet.DecodeGoodbye", nil)
	}

	return GoodbyePayload{
		TimeoutSeconds:  int64(binary.LittleEndian.Uint64(body[0:8])),
		SentTimeSeconds: int64(binary.LittleEndian.Uint64(body[8:16])),
	}, nil
}

// Timeout returns the payload's timeout as a time.Duration.
func (g GoodbyePayload) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}
