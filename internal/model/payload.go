package model

// WalletPayload is the decrypted callback body, closed over the variants below
type WalletPayload interface {
	payloadKind() string
}

// ConnectPayload is returned by the connect method
type ConnectPayload struct {
	Session   string `json:"session"`
	PublicKey string `json:"public_key"`
}

// SignMessagePayload is returned by the signMessage method
type SignMessagePayload struct {
	Signature string `json:"signature"`
}

// SubmitPayload is returned by signTransaction; Flow is taken from the persisted context
type SubmitPayload struct {
	Transaction string             `json:"transaction"`
	Signature   string             `json:"-"` // fee payer signature, empty if unsigned
	Flow        PendingFlowContext `json:"-"`
}

// UnknownPayload is a body matching no known variant
type UnknownPayload struct {
	Fields []string `json:"-"`
}

func (ConnectPayload) payloadKind() string     { return "connect" }
func (SignMessagePayload) payloadKind() string { return "sign-message" }
func (SubmitPayload) payloadKind() string      { return "submit" }
func (UnknownPayload) payloadKind() string     { return "unknown" }

// PayloadKind names the variant of p for logging.
func PayloadKind(p WalletPayload) string {
	if p == nil {
		return "none"
	}
	return p.payloadKind()
}
