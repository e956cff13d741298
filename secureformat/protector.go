package secureformat

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"strings"

	serrors "github.com/pilab-dev/requesttoken/errors"
	"golang.org/x/crypto/chacha20poly1305"
)

// Protector seals and opens opaque payloads.
type Protector interface {
	Protect(plain []byte) ([]byte, error)
	Unprotect(sealed []byte) ([]byte, error)
}

// AEADProtector seals with XChaCha20-Poly1305. The purposes are bound as
// associated data, so a payload sealed for one purpose does not open under
// another. Output is nonce || ciphertext.
type AEADProtector struct {
	aead cipher.AEAD
	ad   []byte
}

// NewAEADProtector requires a 32-byte key.
func NewAEADProtector(key []byte, purposes ...string) (*AEADProtector, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", serrors.ErrInvalidArgument, err)
	}
	return &AEADProtector{
		aead: aead,
		ad:   []byte(strings.Join(purposes, "\x00")),
	}, nil
}

func (p *AEADProtector) Protect(plain []byte) ([]byte, error) {
	nonce := make([]byte, p.aead.NonceSize(), p.aead.NonceSize()+len(plain)+p.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("%w: reading nonce: %v", serrors.ErrProtection, err)
	}
	return p.aead.Seal(nonce, nonce, plain, p.ad), nil
}

func (p *AEADProtector) Unprotect(sealed []byte) ([]byte, error) {
	ns := p.aead.NonceSize()
	if len(sealed) < ns+p.aead.Overhead() {
		return nil, fmt.Errorf("%w: payload too short", serrors.ErrProtection)
	}
	plain, err := p.aead.Open(nil, sealed[:ns], sealed[ns:], p.ad)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", serrors.ErrProtection, err)
	}
	return plain, nil
}
