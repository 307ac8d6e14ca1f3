package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/swaperr"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/txcodec"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// BlockhashSource supplies a fresh blockhash for legacy payloads.
type BlockhashSource interface {
	GetLatestBlockhash(ctx context.Context, commitment string) (solana.Hash, error)
}

type SignerConfig struct {
	Logger *logrus.Logger
	// Blockhash, when set, replaces the blockhash of single-signer legacy
	// payloads before local signing.
	Blockhash  BlockhashSource
	Commitment string
}

type Signer struct {
	logger     *logrus.Logger
	blockhash  BlockhashSource
	commitment string
}

func NewSigner(cfg SignerConfig) *Signer {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Commitment == "" {
		cfg.Commitment = "confirmed"
	}
	return &Signer{logger: cfg.Logger, blockhash: cfg.Blockhash, commitment: cfg.Commitment}
}

// Sign signs every payload of set in order with h. On any failure nothing
// partially signed is returned.
func (s *Signer) Sign(ctx context.Context, set models.UnsignedTransactionSet, h *Handle) (models.SignedTransactionSet, error) {
	if h == nil {
		return models.SignedTransactionSet{}, swaperr.New(swaperr.KindInvalidRequest, "wallet handle is required")
	}
	if len(set.Transactions) == 0 {
		return models.SignedTransactionSet{}, swaperr.New(swaperr.KindInvalidRequest, "nothing to sign")
	}

	out := make([]models.SignedTransaction, 0, len(set.Transactions))
	for i, utx := range set.Transactions {
		d := txcodec.Decode(utx.Payload)
		enc, ok := d.Kind.Encoding()
		if !ok {
			return models.SignedTransactionSet{}, swaperr.Wrap(swaperr.KindUnsupportedEncoding,
				fmt.Sprintf("transaction %d cannot be decoded", i), d.Err)
		}
		if enc != utx.Encoding {
			s.logger.WithFields(logrus.Fields{
				"index":    i,
				"declared": utx.Encoding,
				"detected": enc,
			}).Warn("declared encoding differs from payload, using detected")
		}

		var (
			stx models.SignedTransaction
			err error
		)
		switch h.capability {
		case models.CapabilityLocalKeypair:
			stx, err = s.signLocal(ctx, d.Tx, enc, h)
		case models.CapabilityExternalSigner:
			stx, err = s.signExternal(ctx, utx.Payload, h)
		default:
			err = swaperr.New(swaperr.KindInvalidRequest, "wallet handle has no signing capability")
		}
		if err != nil {
			return models.SignedTransactionSet{}, err
		}
		out = append(out, stx)
	}

	s.logger.WithFields(logrus.Fields{
		"wallet": h.Address(),
		"mode":   h.capability,
		"count":  len(out),
	}).Debug("transactions signed")

	return models.SignedTransactionSet{Transactions: out}, nil
}

func (s *Signer) signLocal(ctx context.Context, tx *solana.Transaction, enc models.Encoding, h *Handle) (models.SignedTransaction, error) {
	if err := ctx.Err(); err != nil {
		return models.SignedTransaction{}, swaperr.Wrap(swaperr.KindCancelled, "signing cancelled", err)
	}
	idx := txcodec.SignerIndex(tx, h.pub)
	if idx < 0 {
		return models.SignedTransaction{}, swaperr.New(swaperr.KindSignerMismatch,
			fmt.Sprintf("%s is not a required signer", h.Address()))
	}
	single := tx.Message.Header.NumRequiredSignatures == 1

	if enc == models.EncodingLegacy && single && s.blockhash != nil {
		bh, err := s.blockhash.GetLatestBlockhash(ctx, s.commitment)
		if err != nil {
			s.logger.WithError(err).Warn("blockhash refresh failed, signing with backend blockhash")
		} else {
			tx.Message.RecentBlockhash = bh
		}
	}

	if enc == models.EncodingVersioned && single {
		if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
			if key.Equals(h.pub) {
				return &h.priv
			}
			return nil
		}); err != nil {
			return models.SignedTransaction{}, swaperr.Wrap(swaperr.KindUnsupportedEncoding, "failed to sign transaction", err)
		}
	} else if err := partialSign(tx, idx, h.priv); err != nil {
		return models.SignedTransaction{}, swaperr.Wrap(swaperr.KindUnsupportedEncoding, "failed to sign transaction", err)
	}

	return encodeSigned(tx, enc, h)
}

// partialSign fills only the holder's signature slot, keeping any
// signatures the backend already applied.
func partialSign(tx *solana.Transaction, idx int, key solana.PrivateKey) error {
	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("serialize message: %w", err)
	}
	sig, err := key.Sign(msg)
	if err != nil {
		return err
	}
	need := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) < need {
		sigs := make([]solana.Signature, need)
		copy(sigs, tx.Signatures)
		tx.Signatures = sigs
	}
	tx.Signatures[idx] = sig
	return nil
}

func (s *Signer) signExternal(ctx context.Context, payload []byte, h *Handle) (models.SignedTransaction, error) {
	signed, err := h.external(ctx, payload)
	if err != nil {
		msg := "wallet declined to sign"
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			msg = "signing cancelled"
		}
		return models.SignedTransaction{}, swaperr.Wrap(swaperr.KindUserRejected, msg, err)
	}

	d := txcodec.Decode(signed)
	enc, ok := d.Kind.Encoding()
	if !ok {
		return models.SignedTransaction{}, swaperr.Wrap(swaperr.KindUnsupportedEncoding, "wallet returned an undecodable transaction", d.Err)
	}
	idx := txcodec.SignerIndex(d.Tx, h.pub)
	if idx < 0 || idx >= len(d.Tx.Signatures) {
		return models.SignedTransaction{}, swaperr.New(swaperr.KindSignerMismatch, "wallet did not sign as "+h.Address())
	}
	msg, err := d.Tx.Message.MarshalBinary()
	if err != nil {
		return models.SignedTransaction{}, swaperr.Wrap(swaperr.KindUnsupportedEncoding, "serialize message", err)
	}
	if !d.Tx.Signatures[idx].Verify(h.pub, msg) {
		return models.SignedTransaction{}, swaperr.New(swaperr.KindSignerMismatch, "wallet returned an invalid signature")
	}

	return models.SignedTransaction{
		Payload:   signed,
		Encoding:  enc,
		Signer:    h.Address(),
		Signature: txcodec.FirstSignature(d.Tx),
	}, nil
}

func encodeSigned(tx *solana.Transaction, enc models.Encoding, h *Handle) (models.SignedTransaction, error) {
	raw, err := txcodec.Encode(tx)
	if err != nil {
		return models.SignedTransaction{}, swaperr.Wrap(swaperr.KindUnsupportedEncoding, "serialize signed transaction", err)
	}
	return models.SignedTransaction{
		Payload:   raw,
		Encoding:  enc,
		Signer:    h.Address(),
		Signature: txcodec.FirstSignature(tx),
	}, nil
}
