package wallet

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// ErrUserRejected is returned by external signers when the user declines.
var ErrUserRejected = errors.New("user rejected the request")

// ExternalSignFunc asks a host wallet to sign one serialized transaction and
// returns the signed serialization.
type ExternalSignFunc func(ctx context.Context, payload []byte) ([]byte, error)

// Handle is the wallet an attempt signs with. Key material never leaves the
// handle and is never printed.
type Handle struct {
	capability models.Capability
	pub        solana.PublicKey
	priv       solana.PrivateKey
	external   ExternalSignFunc
}

// NewLocalKeypair parses a base58 secret key or a solana-keygen JSON array.
func NewLocalKeypair(secret string) (*Handle, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("wallet: private key is required")
	}
	priv, err := parsePrivateKey(secret)
	if err != nil {
		return nil, err
	}
	return NewLocalKeypairFromKey(priv), nil
}

func NewLocalKeypairFromKey(priv solana.PrivateKey) *Handle {
	return &Handle{
		capability: models.CapabilityLocalKeypair,
		pub:        priv.PublicKey(),
		priv:       priv,
	}
}

// NewExternalSigner wraps a host wallet that signs on the user's behalf.
func NewExternalSigner(address string, sign ExternalSignFunc) (*Handle, error) {
	if sign == nil {
		return nil, fmt.Errorf("wallet: external sign func is required")
	}
	pub, err := solana.PublicKeyFromBase58(strings.TrimSpace(address))
	if err != nil {
		return nil, fmt.Errorf("wallet: invalid address: %w", err)
	}
	return &Handle{
		capability: models.CapabilityExternalSigner,
		pub:        pub,
		external:   sign,
	}, nil
}

func (h *Handle) Capability() models.Capability { return h.capability }
func (h *Handle) Address() string               { return h.pub.String() }
func (h *Handle) PublicKey() solana.PublicKey   { return h.pub }

func (h *Handle) String() string {
	return fmt.Sprintf("%s(%s)", h.capability, h.pub)
}

func (h *Handle) GoString() string { return h.String() }

func parsePrivateKey(s string) (solana.PrivateKey, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(s), &ints); err != nil {
			return nil, fmt.Errorf("wallet: invalid JSON private key: %w", err)
		}
		b := make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("wallet: invalid byte at %d", i)
			}
			b[i] = byte(v)
		}
		if len(b) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("wallet: expected %d bytes, got %d", ed25519.PrivateKeySize, len(b))
		}
		return solana.PrivateKey(ed25519.PrivateKey(b)), nil
	}

	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("wallet: invalid base58 private key")
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("wallet: expected %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return solana.PrivateKey(ed25519.PrivateKey(raw)), nil
}
