package model

// ConnectResponse represents response for GET /phantom/connect
type ConnectResponse struct {
	URL string `json:"url"`
	QR  string `json:"qr"` // base64 PNG of URL
}

// CallbackResponse represents response for GET /phantom/callback when asked for JSON
type CallbackResponse struct {
	Captured bool `json:"captured"`
}
