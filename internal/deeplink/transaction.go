package deeplink

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// DecodeTransaction decodes a base58 serialized transaction as returned by signTransaction.
// Signatures are not verified: the backend may still have to co-sign.
func DecodeTransaction(encoded string) (*solana.Transaction, error) {
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction: %w", err)
	}
	if len(tx.Message.AccountKeys) == 0 {
		return nil, fmt.Errorf("transaction has no accounts")
	}
	return tx, nil
}

// FeePayerSignature returns the first signature if the fee payer has signed.
func FeePayerSignature(tx *solana.Transaction) string {
	if len(tx.Signatures) == 0 || tx.Signatures[0] == (solana.Signature{}) {
		return ""
	}
	return tx.Signatures[0].String()
}
