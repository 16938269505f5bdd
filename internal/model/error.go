package model

// Bridge API error codes
const (
	CodeInvalidTarget   = "invalid_target"
	CodeInvalidCallback = "invalid_callback"
	CodeStoreFailed     = "store_failed"
	CodeConnectFailed   = "connect_failed"
	CodeQRFailed        = "qr_failed"
	CodeNotConnected    = "not_connected"
	CodeBalanceFailed   = "balance_failed"
)

// ErrorResponse is the JSON body of every bridge API error; Code is one of the Code* values.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
