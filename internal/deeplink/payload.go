package deeplink

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/AlexZinkM/walletlink/internal/model"

	"github.com/gagliardetto/solana-go"
)

// ValidateAddress checks that a connect result carries a usable wallet account address.
func ValidateAddress(address string) error {
	if _, err := solana.PublicKeyFromBase58(address); err != nil {
		return fmt.Errorf("invalid wallet address: %w", err)
	}
	return nil
}

// ErrPayloadParse is returned when the decrypted body is not a JSON object of strings.
var ErrPayloadParse = errors.New("failed to parse wallet payload")

// DecodePayload classifies a decrypted body. First match wins:
// session with public_key and no signature is a connect, a signature is a signed message,
// a transaction is a submit only while pending holds a submit flow, anything else is unknown.
func DecodePayload(plaintext []byte, pending *model.PendingFlowContext) (model.WalletPayload, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(plaintext, &fields); err != nil || fields == nil {
		return nil, ErrPayloadParse
	}

	str := func(name string) (string, bool, error) {
		raw, ok := fields[name]
		if !ok {
			return "", false, nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", true, fmt.Errorf("%w: %s is not a string", ErrPayloadParse, name)
		}
		return s, s != "", nil
	}

	// a signature decides the variant whatever else the body carries
	signature, hasSignature, err := str("signature")
	if err != nil {
		return nil, err
	}
	if hasSignature {
		return model.SignMessagePayload{Signature: signature}, nil
	}

	sess, hasSession, err := str("session")
	if err != nil {
		return nil, err
	}
	pub, hasPub, err := str("public_key")
	if err != nil {
		return nil, err
	}
	if hasSession && hasPub {
		return model.ConnectPayload{Session: sess, PublicKey: pub}, nil
	}

	tx, hasTx, err := str("transaction")
	if err != nil {
		return nil, err
	}
	if hasTx && pending != nil && pending.Kind.IsSubmit() {
		out := model.SubmitPayload{Transaction: tx, Flow: *pending}
		// the blob is forwarded as is; the signature is only picked out for logging
		if decoded, err := DecodeTransaction(tx); err == nil {
			out.Signature = FeePayerSignature(decoded)
		}
		return out, nil
	}

	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return model.UnknownPayload{Fields: names}, nil
}
