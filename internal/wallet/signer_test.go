package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/swaperr"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/txcodec"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/txcodec/txtest"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedBlockhash struct {
	hash  solana.Hash
	err   error
	calls int
}

func (f *fixedBlockhash) GetLatestBlockhash(context.Context, string) (solana.Hash, error) {
	f.calls++
	return f.hash, f.err
}

func testSigner(src BlockhashSource) *Signer {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return NewSigner(SignerConfig{Logger: l, Blockhash: src})
}

func unsignedSet(payloads ...models.UnsignedTransaction) models.UnsignedTransactionSet {
	return models.UnsignedTransactionSet{Chain: models.ChainSolana, Transactions: payloads}
}

func verifySlot(t *testing.T, payload []byte, idx int, pub solana.PublicKey) *solana.Transaction {
	t.Helper()
	d := txcodec.Decode(payload)
	require.NoError(t, d.Err)
	msg, err := d.Tx.Message.MarshalBinary()
	require.NoError(t, err)
	require.Greater(t, len(d.Tx.Signatures), idx)
	assert.True(t, d.Tx.Signatures[idx].Verify(pub, msg), "signature slot %d must verify", idx)
	return d.Tx
}

func TestSignLocalVersioned(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	h := NewLocalKeypairFromKey(key)
	raw := txtest.Unsigned(t, key.PublicKey(), true)

	out, err := testSigner(nil).Sign(context.Background(), unsignedSet(models.UnsignedTransaction{
		Payload: raw, Encoding: models.EncodingVersioned,
	}), h)
	require.NoError(t, err)
	require.Len(t, out.Transactions, 1)

	stx := out.Transactions[0]
	assert.Equal(t, models.EncodingVersioned, stx.Encoding)
	assert.Equal(t, key.PublicKey().String(), stx.Signer)
	tx := verifySlot(t, stx.Payload, 0, key.PublicKey())
	assert.Equal(t, tx.Signatures[0].String(), stx.Signature)
}

func TestSignLocalLegacyKeepsOtherSlots(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	other := solana.NewWallet().PublicKey()
	h := NewLocalKeypairFromKey(key)
	raw := txtest.Unsigned(t, key.PublicKey(), false, other)

	out, err := testSigner(nil).Sign(context.Background(), unsignedSet(models.UnsignedTransaction{
		Payload: raw, Encoding: models.EncodingLegacy,
	}), h)
	require.NoError(t, err)

	tx := verifySlot(t, out.Transactions[0].Payload, 0, key.PublicKey())
	require.Len(t, tx.Signatures, 2)
	assert.Equal(t, solana.Signature{}, tx.Signatures[1])
}

func TestSignLocalAsSecondarySigner(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	payer := solana.NewWallet().PublicKey()
	h := NewLocalKeypairFromKey(key)
	raw := txtest.Unsigned(t, payer, false, key.PublicKey())

	out, err := testSigner(nil).Sign(context.Background(), unsignedSet(models.UnsignedTransaction{
		Payload: raw, Encoding: models.EncodingLegacy,
	}), h)
	require.NoError(t, err)

	tx := verifySlot(t, out.Transactions[0].Payload, 1, key.PublicKey())
	assert.Equal(t, solana.Signature{}, tx.Signatures[0])
	assert.Empty(t, out.Transactions[0].Signature)
}

func TestSignLocalRefreshesLegacyBlockhash(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	fresh := &fixedBlockhash{hash: solana.Hash(solana.SystemProgramID)}
	raw := txtest.Unsigned(t, key.PublicKey(), false)

	out, err := testSigner(fresh).Sign(context.Background(), unsignedSet(models.UnsignedTransaction{
		Payload: raw, Encoding: models.EncodingLegacy,
	}), NewLocalKeypairFromKey(key))
	require.NoError(t, err)

	tx := verifySlot(t, out.Transactions[0].Payload, 0, key.PublicKey())
	assert.Equal(t, fresh.hash, tx.Message.RecentBlockhash)
	assert.Equal(t, 1, fresh.calls)
}

func TestSignLocalKeepsBlockhashForVersioned(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	fresh := &fixedBlockhash{hash: solana.Hash(solana.SystemProgramID)}
	raw := txtest.Unsigned(t, key.PublicKey(), true)

	out, err := testSigner(fresh).Sign(context.Background(), unsignedSet(models.UnsignedTransaction{
		Payload: raw, Encoding: models.EncodingVersioned,
	}), NewLocalKeypairFromKey(key))
	require.NoError(t, err)

	tx := verifySlot(t, out.Transactions[0].Payload, 0, key.PublicKey())
	assert.Equal(t, txtest.Blockhash, tx.Message.RecentBlockhash)
	assert.Zero(t, fresh.calls)
}

func TestSignLocalRefreshFailureFallsBack(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	fresh := &fixedBlockhash{err: errors.New("node down")}
	raw := txtest.Unsigned(t, key.PublicKey(), false)

	out, err := testSigner(fresh).Sign(context.Background(), unsignedSet(models.UnsignedTransaction{
		Payload: raw, Encoding: models.EncodingLegacy,
	}), NewLocalKeypairFromKey(key))
	require.NoError(t, err)

	tx := verifySlot(t, out.Transactions[0].Payload, 0, key.PublicKey())
	assert.Equal(t, txtest.Blockhash, tx.Message.RecentBlockhash)
}

func TestSignUsesDetectedEncoding(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	raw := txtest.Unsigned(t, key.PublicKey(), false)

	out, err := testSigner(nil).Sign(context.Background(), unsignedSet(models.UnsignedTransaction{
		Payload: raw, Encoding: models.EncodingVersioned,
	}), NewLocalKeypairFromKey(key))
	require.NoError(t, err)
	assert.Equal(t, models.EncodingLegacy, out.Transactions[0].Encoding)
}

func TestSignSignerMismatch(t *testing.T) {
	raw := txtest.Unsigned(t, solana.NewWallet().PublicKey(), true)

	out, err := testSigner(nil).Sign(context.Background(), unsignedSet(models.UnsignedTransaction{
		Payload: raw, Encoding: models.EncodingVersioned,
	}), NewLocalKeypairFromKey(solana.NewWallet().PrivateKey))
	assert.True(t, swaperr.Is(err, swaperr.KindSignerMismatch))
	assert.Empty(t, out.Transactions)
}

func TestSignUnsupportedEncoding(t *testing.T) {
	_, err := testSigner(nil).Sign(context.Background(), unsignedSet(models.UnsignedTransaction{
		Payload: []byte{0xde, 0xad}, Encoding: models.EncodingLegacy,
	}), NewLocalKeypairFromKey(solana.NewWallet().PrivateKey))
	assert.True(t, swaperr.Is(err, swaperr.KindUnsupportedEncoding))
}

func TestSignNoPartialResults(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	good := txtest.Unsigned(t, key.PublicKey(), false)
	bad := txtest.Unsigned(t, solana.NewWallet().PublicKey(), false)

	out, err := testSigner(nil).Sign(context.Background(), unsignedSet(
		models.UnsignedTransaction{Payload: good, Encoding: models.EncodingLegacy},
		models.UnsignedTransaction{Payload: bad, Encoding: models.EncodingLegacy},
	), NewLocalKeypairFromKey(key))
	require.Error(t, err)
	assert.Empty(t, out.Transactions)
}

func TestSignExternal(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	var seen int
	h, err := NewExternalSigner(key.PublicKey().String(), func(_ context.Context, payload []byte) ([]byte, error) {
		seen++
		d := txcodec.Decode(payload)
		if d.Err != nil {
			return nil, d.Err
		}
		if err := partialSign(d.Tx, 0, key); err != nil {
			return nil, err
		}
		return txcodec.Encode(d.Tx)
	})
	require.NoError(t, err)

	out, err := testSigner(nil).Sign(context.Background(), unsignedSet(
		models.UnsignedTransaction{Payload: txtest.Unsigned(t, key.PublicKey(), false), Encoding: models.EncodingLegacy},
		models.UnsignedTransaction{Payload: txtest.Unsigned(t, key.PublicKey(), false), Encoding: models.EncodingLegacy},
	), h)
	require.NoError(t, err)
	assert.Equal(t, 2, seen)
	require.Len(t, out.Transactions, 2)
	for _, stx := range out.Transactions {
		verifySlot(t, stx.Payload, 0, key.PublicKey())
		assert.NotEmpty(t, stx.Signature)
	}
}

func TestSignExternalRejected(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	h, err := NewExternalSigner(key.PublicKey().String(), func(context.Context, []byte) ([]byte, error) {
		return nil, ErrUserRejected
	})
	require.NoError(t, err)

	out, err := testSigner(nil).Sign(context.Background(), unsignedSet(
		models.UnsignedTransaction{Payload: txtest.Unsigned(t, key.PublicKey(), true), Encoding: models.EncodingVersioned},
	), h)
	assert.True(t, swaperr.Is(err, swaperr.KindUserRejected))
	assert.ErrorIs(t, err, ErrUserRejected)
	assert.Empty(t, out.Transactions)
}

func TestSignExternalInvalidSignature(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	h, err := NewExternalSigner(key.PublicKey().String(), func(_ context.Context, payload []byte) ([]byte, error) {
		return payload, nil
	})
	require.NoError(t, err)

	_, err = testSigner(nil).Sign(context.Background(), unsignedSet(
		models.UnsignedTransaction{Payload: txtest.Unsigned(t, key.PublicKey(), true), Encoding: models.EncodingVersioned},
	), h)
	assert.True(t, swaperr.Is(err, swaperr.KindSignerMismatch))
}

func TestSignRequiresHandle(t *testing.T) {
	_, err := testSigner(nil).Sign(context.Background(), unsignedSet(models.UnsignedTransaction{}), nil)
	assert.True(t, swaperr.Is(err, swaperr.KindInvalidRequest))
}
