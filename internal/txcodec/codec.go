// Package txcodec decodes serialized swap transactions into a tagged result
// instead of probing formats by trial and error.
package txcodec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

type Kind int

const (
	Unrecognized Kind = iota
	Legacy
	Versioned
)

func (k Kind) String() string {
	switch k {
	case Legacy:
		return "legacy"
	case Versioned:
		return "versioned"
	default:
		return "unrecognized"
	}
}

// Encoding maps a recognized kind to its model encoding.
func (k Kind) Encoding() (models.Encoding, bool) {
	switch k {
	case Legacy:
		return models.EncodingLegacy, true
	case Versioned:
		return models.EncodingVersioned, true
	default:
		return 0, false
	}
}

// Decoded is the result of Decode. Tx is nil when Kind is Unrecognized.
type Decoded struct {
	Kind Kind
	Tx   *solana.Transaction
	Err  error
}

var errTrailingBytes = errors.New("trailing bytes after transaction")

// Decode parses raw as a versioned transaction first and falls back to the
// legacy layout. Untrusted input never panics.
func Decode(raw []byte) (out Decoded) {
	defer func() {
		if r := recover(); r != nil {
			out = Decoded{Kind: Unrecognized, Err: fmt.Errorf("decode panic: %v", r)}
		}
	}()

	if len(raw) == 0 {
		return Decoded{Kind: Unrecognized, Err: errors.New("empty payload")}
	}

	dec := bin.NewBinDecoder(raw)
	tx, err := solana.TransactionFromDecoder(dec)
	if err != nil {
		return Decoded{Kind: Unrecognized, Err: err}
	}
	if dec.Remaining() > 0 {
		return Decoded{Kind: Unrecognized, Err: errTrailingBytes}
	}
	if int(tx.Message.Header.NumRequiredSignatures) == 0 || len(tx.Message.AccountKeys) == 0 {
		return Decoded{Kind: Unrecognized, Err: errors.New("message has no signers")}
	}

	if tx.Message.IsVersioned() {
		return Decoded{Kind: Versioned, Tx: tx}
	}
	return Decoded{Kind: Legacy, Tx: tx}
}

// DecodeBase64 decodes a base64 payload as returned by swap backends.
func DecodeBase64(s string) ([]byte, Decoded) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, Decoded{Kind: Unrecognized, Err: fmt.Errorf("invalid base64: %w", err)}
	}
	return raw, Decode(raw)
}

// Encode serializes tx, padding missing signature slots with zero
// signatures so partially signed transactions round-trip.
func Encode(tx *solana.Transaction) ([]byte, error) {
	need := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) < need {
		sigs := make([]solana.Signature, need)
		copy(sigs, tx.Signatures)
		tx.Signatures = sigs
	}
	return tx.MarshalBinary()
}

// SignerIndex returns the signature slot of key, or -1 when key is not a
// required signer of the message.
func SignerIndex(tx *solana.Transaction, key solana.PublicKey) int {
	n := int(tx.Message.Header.NumRequiredSignatures)
	for i := 0; i < n && i < len(tx.Message.AccountKeys); i++ {
		if tx.Message.AccountKeys[i].Equals(key) {
			return i
		}
	}
	return -1
}

// FirstSignature returns the transaction id, or "" when unsigned.
func FirstSignature(tx *solana.Transaction) string {
	if len(tx.Signatures) == 0 || tx.Signatures[0] == (solana.Signature{}) {
		return ""
	}
	return tx.Signatures[0].String()
}
