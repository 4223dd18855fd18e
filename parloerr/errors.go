// Package parloerr defines Parlo's error taxonomy so callers can branch
// on error kind with errors.Is/errors.As instead of string matching.
package parloerr

import "fmt"

// Kind classifies a Parlo error per the propagation policy:
// InvalidArgument, Overflow, NotConnected, and CryptoUnsupported are
// returned synchronously from the call that detected them; Transport,
// Framing, and Codec typically surface through a
// connection's on_connection_lost handler instead.
type Kind int

const (
	// InvalidArgument: empty payload, empty send data, nil encryption args.
	InvalidArgument Kind = iota
	// Overflow: add_data/send_async input exceeds MAX_PACKET_SIZE, or a
	// built frame length would not fit in 16 bits.
	Overflow
	// NotConnected: send_async called on a disconnected client.
	NotConnected
	// Transport: read/write/accept/connect/shutdown failures.
	Transport
	// Framing: a malformed header (impossible length) desynchronized the stream.
	Framing
	// Codec: compression or decompression failure.
	Codec
	// CryptoUnsupported: unknown cipher mode in encryption args.
	CryptoUnsupported
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid_argument"
	case Overflow:
		return "overflow"
	case NotConnected:
		return "not_connected"
	case Transport:
		return "transport"
	case Framing:
		return "framing"
	case Codec:
		return "codec"
	case CryptoUnsupported:
		return "crypto_unsupported"
	default:
		return "unknown"
	}
}

// Error is Parlo's wrapped error type: a Kind, the operation that
// detected it, and an optional underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parlo: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("parlo: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so
// callers can write errors.Is(err, parloerr.New(parloerr.Overflow, "", nil))
// or, more conveniently, use the Is* helpers below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an *Error of the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func sentinel(k Kind) *Error { return &Error{Kind: k} }

var (
	errInvalidArgument   = sentinel(InvalidArgument)
	errOverflow          = sentinel(Overflow)
	errNotConnected      = sentinel(NotConnected)
	errTransport         = sentinel(Transport)
	errFraming           = sentinel(Framing)
	errCodec             = sentinel(Codec)
	errCryptoUnsupported = sentinel(CryptoUnsupported)
)

// IsInvalidArgument reports whether err carries the InvalidArgument kind.
func IsInvalidArgument(err error) bool { return kindIs(err, errInvalidArgument) }

// IsOverflow reports whether err carries the Overflow kind.
func IsOverflow(err error) bool { return kindIs(err, errOverflow) }

// IsNotConnected reports whether err carries the NotConnected kind.
func IsNotConnected(err error) bool { return kindIs(err, errNotConnected) }

// IsTransport reports whether err carries the Transport kind.
func IsTransport(err error) bool { return kindIs(err, errTransport) }

// IsFraming reports whether err carries the Framing kind.
func IsFraming(err error) bool { return kindIs(err, errFraming) }

// IsCodec reports whether err carries the Codec kind.
func IsCodec(err error) bool { return kindIs(err, errCodec) }

// IsCryptoUnsupported reports whether err carries the CryptoUnsupported kind.
func IsCryptoUnsupported(err error) bool { return kindIs(err, errCryptoUnsupported) }

func kindIs(err error, sentinelErr *Error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	return e.Kind == sentinelErr.Kind
}
