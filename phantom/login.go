package phantom

import (
	"strings"

	"github.com/AlexZinkM/walletlink/internal/client"
)

// LoginFailureReason is the user facing reason a wallet login was refused.
type LoginFailureReason string

const (
	ReasonWalletAlreadyLinked LoginFailureReason = "wallet-already-linked"
	ReasonInvalidSignature    LoginFailureReason = "invalid-signature"
	ReasonExpiredNonce        LoginFailureReason = "expired-nonce"
	ReasonGeneric             LoginFailureReason = "generic"
)

var (
	linkedPhrases    = []string{"already linked", "already been linked", "linked to another", "already in use", "already registered"}
	noncePhrases     = []string{"nonce expired", "expired nonce", "invalid nonce", "nonce not found", "nonce already used", "challenge expired"}
	signaturePhrases = []string{"invalid signature", "signature verification", "signature is invalid", "bad signature"}
)

// ClassifyLoginFailure maps a backend login error onto a known reason.
// Only the backend's {error} message is matched; transport errors are generic.
func ClassifyLoginFailure(err error) LoginFailureReason {
	be, ok := client.IsBackendError(err)
	if !ok {
		return ReasonGeneric
	}
	msg := strings.ToLower(be.Message)
	switch {
	case containsAny(msg, linkedPhrases):
		return ReasonWalletAlreadyLinked
	case containsAny(msg, noncePhrases):
		return ReasonExpiredNonce
	case containsAny(msg, signaturePhrases):
		return ReasonInvalidSignature
	}
	return ReasonGeneric
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
