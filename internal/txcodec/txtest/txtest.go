// Package txtest builds serialized transactions for tests.
package txtest

import (
	"encoding/base64"
	"testing"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/txcodec"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

// Blockhash is a fixed recent blockhash used by the builders.
var Blockhash = solana.Hash(solana.TokenProgramID)

// Unsigned returns an unsigned transfer from payer to a random recipient,
// serialized with zero-filled signature slots. extraSigners are appended as
// additional required signers.
func Unsigned(t testing.TB, payer solana.PublicKey, versioned bool, extraSigners ...solana.PublicKey) []byte {
	t.Helper()

	to := solana.NewWallet().PublicKey()
	accounts := solana.AccountMetaSlice{
		solana.Meta(payer).WRITE().SIGNER(),
		solana.Meta(to).WRITE(),
	}
	for _, s := range extraSigners {
		accounts = append(accounts, solana.Meta(s).SIGNER())
	}
	data := []byte{2, 0, 0, 0, 0x40, 0x42, 0x0f, 0, 0, 0, 0, 0}
	ix := solana.NewInstruction(solana.SystemProgramID, accounts, data)

	tx, err := solana.NewTransaction([]solana.Instruction{ix}, Blockhash, solana.TransactionPayer(payer))
	require.NoError(t, err)
	if versioned {
		tx.Message.SetVersion(solana.MessageVersionV0)
	}

	raw, err := txcodec.Encode(tx)
	require.NoError(t, err)
	return raw
}

// UnsignedBase64 is Unsigned encoded the way backends return it.
func UnsignedBase64(t testing.TB, payer solana.PublicKey, versioned bool) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString(Unsigned(t, payer, versioned))
}

// Signed returns a fully signed transaction and its id.
func Signed(t testing.TB, key solana.PrivateKey, versioned bool) ([]byte, string) {
	t.Helper()

	raw := Unsigned(t, key.PublicKey(), versioned)
	d := txcodec.Decode(raw)
	require.NoError(t, d.Err)

	_, err := d.Tx.Sign(func(pub solana.PublicKey) *solana.PrivateKey {
		if pub.Equals(key.PublicKey()) {
			return &key
		}
		return nil
	})
	require.NoError(t, err)

	out, err := txcodec.Encode(d.Tx)
	require.NoError(t, err)
	return out, d.Tx.Signatures[0].String()
}
