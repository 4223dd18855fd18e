// Package cryptopacket implements Parlo's optional per-client
// encryption layer: AES-CBC or Twofish-CBC with a PBKDF2-HMAC-SHA256
// derived key and IV, wrapped as the payload of an ordinary packet
// frame so the wire format needs no bespoke length rule.
package cryptopacket

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/twofish"

	"github.com/Afr0/parlo/packet"
	"github.com/Afr0/parlo/parloerr"
)

// Mode selects the block cipher used for a connection's encrypted frames.
type Mode int

const (
	// ModeAES selects AES-128-CBC.
	ModeAES Mode = iota
	// ModeTwofish selects Twofish-128-CBC.
	ModeTwofish
)

const (
	pbkdf2Iterations = 10000
	keySize          = 16 // AES-128 / Twofish-128 key length
	blockSize        = 16 // both ciphers use a 16-byte block
	derivedSize      = keySize + blockSize
)

// Args carries the key material for one connection's encrypted frames.
// Key and Salt are passed through PBKDF2-HMAC-SHA256 to derive the
// actual cipher key and IV; they are never used directly.
type Args struct {
	Mode Mode
	Key  string
	Salt string
}

func (a Args) deriveKeyIV() (key, iv []byte) {
	derived := pbkdf2.Key([]byte(a.Key), []byte(a.Salt), pbkdf2Iterations, derivedSize, sha256.New)
	return derived[:keySize], derived[keySize:]
}

func (a Args) newCipher(key []byte) (cipher.Block, error) {
	switch a.Mode {
	case ModeAES:
		return aes.NewCipher(key)
	case ModeTwofish:
		return twofish.NewCipher(key)
	default:
		return nil, parloerr.New(parloerr.CryptoUnsupported, "cryptopacket.newCipher", nil)
	}
}

// pkcs7Pad pads data to a multiple of blockSize per PKCS#7.
func pkcs7Pad(data []byte) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, parloerr.New(parloerr.Codec, "cryptopacket.pkcs7Unpad", nil)
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, parloerr.New(parloerr.Codec, "cryptopacket.pkcs7Unpad", nil)
	}
	return data[:len(data)-padLen], nil
}

// Encrypt derives a key/IV from args and encrypts plaintext with
// CBC mode and PKCS#7 padding.
func Encrypt(args Args, plaintext []byte) ([]byte, error) {
	key, iv := args.deriveKeyIV()
	block, err := args.newCipher(key)
	if err != nil {
		return nil, err
	}

	padded := pkcs7Pad(plaintext)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

// Decrypt reverses Encrypt.
func Decrypt(args Args, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%blockSize != 0 {
		return nil, parloerr.New(parloerr.Codec, "cryptopacket.Decrypt", nil)
	}

	key, iv := args.deriveKeyIV()
	block, err := args.newCipher(key)
	if err != nil {
		return nil, err
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)
	return pkcs7Unpad(padded)
}

// Build encrypts serializedData under args and wraps
// id, encrypted-marker, ciphertext as the payload of an ordinary
// length-prefixed Packet.
func Build(args Args, id byte, serializedData []byte) (*packet.Packet, error) {
	if len(serializedData) == 0 {
		return nil, parloerr.New(parloerr.InvalidArgument, "cryptopacket.Build", nil)
	}

	ciphertext, err := Encrypt(args, serializedData)
	if err != nil {
		return nil, err
	}

	inner := make([]byte, 0, 2+len(ciphertext))
	inner = append(inner, id, 1) // second byte marks encrypted, mirroring the compressed-flag slot
	inner = append(inner, ciphertext...)

	return packet.New(id, inner, false)
}

// Decode reverses Build given the inner payload of a received packet
// (the bytes after the standard 4-byte header).
func Decode(args Args, payload []byte) (id byte, plaintext []byte, err error) {
	if len(payload) < 2 {
		return 0, nil, parloerr.New(parloerr.Codec, "cryptopacket.Decode", nil)
	}

	id = payload[0]
	ciphertext := payload[2:]

	plaintext, err = Decrypt(args, ciphertext)
	if err != nil {
		return 0, nil, err
	}
	return id, plaintext, nil
}

// NewSalt returns cryptographically random bytes suitable for use as a salt.
func NewSalt(n int) ([]byte, error) {
	salt := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, parloerr.New(parloerr.Transport, "cryptopacket.NewSalt", err)
	}
	return salt, nil
}
