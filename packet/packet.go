// Package packet implements Parlo's wire-format record: an immutable
// id + compressed-flag + length-prefixed payload, built for both the
// standard and UDP header variants. Parsing received frames is done by
// the buffer package, for the standard header only.
package packet

import (
	"encoding/binary"

	"github.com/Afr0/parlo/parloerr"
)

const (
	// StandardHeaderSize is the header size of a TCP-framed packet:
	// id, compressed flag, 2-byte little-endian length.
	StandardHeaderSize = 4

	// UDPHeaderSize additionally carries a reliable flag byte between
	// the compressed flag and the length. Reassembly of this variant is
	// out of core scope; only NewUDP/Build are provided, no decoder.
	UDPHeaderSize = 5

	// MaxPacketSize bounds a single add_data chunk and a single
	// send_async payload.
	MaxPacketSize = 1024

	// Reserved packet IDs. Application protocols must not use these.
	Heartbeat     byte = 0xFD
	ServerGoodbye byte = 0xFE
	ClientGoodbye byte = 0xFF
)

// Packet is Parlo's immutable wire-format record.
type Packet struct {
	id              byte
	compressedFlag  bool
	isUDP           bool
	reliableFlag    bool
	length          uint16
	payload         []byte
}

// New builds a standard (TCP) packet. Payload must be non-empty.
func New(id byte, payload []byte, compressed bool) (*Packet, error) {
	if len(payload) == 0 {
		return nil, parloerr.New(parloerr.InvalidArgument, "packet.New", nil)
	}

	length := StandardHeaderSize + len(payload)
	if length > 0xFFFF {
		return nil, parloerr.New(parloerr.Overflow, "packet.New", nil)
	}

	return &Packet{
		id:             id,
		compressedFlag: compressed,
		length:         uint16(length),
		payload:        payload,
	}, nil
}

// NewUDP builds a UDP-variant packet carrying an extra reliable flag.
// Reassembly of this variant is outside ProcessingBuffer's scope; the
// header and payload are still well-defined and can be built/inspected.
func NewUDP(id byte, payload []byte, compressed, reliable bool) (*Packet, error) {
	if len(payload) == 0 {
		return nil, parloerr.New(parloerr.InvalidArgument, "packet.NewUDP", nil)
	}

	length := UDPHeaderSize + len(payload)
	if length > 0xFFFF {
		return nil, parloerr.New(parloerr.Overflow, "packet.NewUDP", nil)
	}

	return &Packet{
		id:             id,
		compressedFlag: compressed,
		isUDP:          true,
		reliableFlag:   reliable,
		length:         uint16(length),
		payload:        payload,
	}, nil
}

// ID returns the packet's identifier byte.
func (p *Packet) ID() byte { return p.id }

// Compressed reports whether the payload bytes are compressed.
func (p *Packet) Compressed() bool { return p.compressedFlag }

// Reliable reports the UDP-variant reliable flag (false for standard packets).
func (p *Packet) Reliable() bool { return p.reliableFlag }

// Length returns the total frame length, header included.
func (p *Packet) Length() uint16 { return p.length }

// Payload returns the packet's opaque payload bytes.
func (p *Packet) Payload() []byte { return p.payload }

// Build serializes the packet: id, compressed_flag, (reliable_flag if
// UDP), length (little-endian u16), payload.
func (p *Packet) Build() []byte {
	headerSize := StandardHeaderSize
	if p.isUDP {
		headerSize = UDPHeaderSize
	}

	out := make([]byte, 0, headerSize+len(p.payload))
	out = append(out, p.id)
	out = append(out, boolByte(p.compressedFlag))
	if p.isUDP {
		out = append(out, boolByte(p.reliableFlag))
	}

	var lenBytes [2]byte
	binary.LittleEndian.PutUint16(lenBytes[:], p.length)
	out = append(out, lenBytes[:]...)
	out = append(out, p.payload...)

	return out
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
