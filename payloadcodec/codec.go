// Package payloadcodec implements Parlo's optional per-packet
// compression: a DEFLATE codec plus the size/RTT gate that decides
// whether a given payload is worth compressing at all.
package payloadcodec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/Afr0/parlo/parloerr"
)

// CompressThresholdBytes is the minimum payload size worth the CPU
// cost of compressing; below it the wire savings rarely pay for the
// round trip through flate.
const CompressThresholdBytes = 1024

// RTTThresholdMillis is the round-trip time a link must exceed before
// large payloads are compressed; on a faster link compression is
// skipped.
const RTTThresholdMillis = 100

// Codec compresses and decompresses packet payloads.
type Codec interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// flateCodec is a DEFLATE-backed Codec; each call allocates its own
// working buffer.
type flateCodec struct {
	level int
}

// New returns a Codec using DEFLATE at the given compression level
// (flate.DefaultCompression is a sane default).
func New(level int) Codec {
	return &flateCodec{level: level}
}

func (c *flateCodec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(32 * 1024)

	w, err := flate.NewWriter(&buf, c.level)
	if err != nil {
		return nil, parloerr.New(parloerr.Codec, "payloadcodec.Compress", err)
	}

	if _, err := w.Write(data); err != nil {
		return nil, parloerr.New(parloerr.Codec, "payloadcodec.Compress", err)
	}
	if err := w.Close(); err != nil {
		return nil, parloerr.New(parloerr.Codec, "payloadcodec.Compress", err)
	}

	return buf.Bytes(), nil
}

func (c *flateCodec) Decompress(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, parloerr.New(parloerr.Codec, "payloadcodec.Decompress", err)
	}
	return out, nil
}

// ShouldCompress reports whether a payload of the given size should
// be compressed before sending, given the connection's current RTT
// estimate and whether compression is enabled at all for it. A laggy
// link is worth trading CPU for bandwidth on; a fast one isn't.
func ShouldCompress(payloadSize int, rttMillis int64, enabled bool) bool {
	if !enabled {
		return false
	}
	if payloadSize < CompressThresholdBytes {
		return false
	}
	if rttMillis > RTTThresholdMillis {
		return true
	}
	return false
}
