package handler

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/AlexZinkM/walletlink/internal/deeplink"
	"github.com/AlexZinkM/walletlink/internal/model"
	"github.com/AlexZinkM/walletlink/internal/session"
	"github.com/AlexZinkM/walletlink/internal/storage"
	"github.com/AlexZinkM/walletlink/phantom"

	"go.uber.org/zap"
)

var relayPage = template.Must(template.New("relay").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="0;url={{.}}">
<title>Opening wallet</title>
</head>
<body>
<p>Opening your wallet. <a href="{{.}}">Tap here</a> if nothing happens.</p>
<script>window.location.replace({{.}});</script>
</body>
</html>
`))

const capturedPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Wallet response received</title></head>
<body><p>Wallet response received. You can return to the app.</p></body>
</html>
`

// BridgeHandler serves the same-origin pages used when the browser cannot deep link directly
type BridgeHandler struct {
	link        *phantom.Link
	store       storage.Store
	phantomBase string
	redirect    string
	captureTTL  int // seconds a captured callback waits for the poller
	log         *zap.Logger
}

// NewBridgeHandler creates a new BridgeHandler
func NewBridgeHandler(link *phantom.Link, store storage.Store, phantomBase, redirect string, captureTTL int, log *zap.Logger) *BridgeHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &BridgeHandler{
		link:        link,
		store:       store,
		phantomBase: strings.TrimRight(phantomBase, "/"),
		redirect:    redirect,
		captureTTL:  captureTTL,
		log:         log,
	}
}

// Relay handles GET /phantom/relay
// @Summary      Relay page
// @Description  Navigates the browser to a wallet deep link from a same-origin page
// @Tags         phantom
// @Produce      html
// @Param        target  query     string  true  "Wallet deep link"
// @Success      200     {string}  string  "HTML page"
// @Failure      400     {object}  model.ErrorResponse
// @Router       /phantom/relay [get]
func (h *BridgeHandler) Relay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	target := r.URL.Query().Get("target")
	if !strings.HasPrefix(target, h.phantomBase+"/") {
		writeError(w, http.StatusBadRequest, "target is not a wallet link", model.CodeInvalidTarget)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Referrer-Policy", "no-referrer")
	if err := relayPage.Execute(w, target); err != nil {
		h.log.Warn("failed to render relay page", zap.Error(err))
	}
}

// Callback handles GET /phantom/callback
// @Summary      Capture wallet callback
// @Description  Stores the wallet redirect for the app to pick up by polling
// @Tags         phantom
// @Produce      json
// @Success      200  {object}  model.CallbackResponse
// @Failure      400  {object}  model.ErrorResponse
// @Router       /phantom/callback [get]
func (h *BridgeHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	if q.Get("data") == "" && q.Get("errorCode") == "" && q.Get("errorMessage") == "" {
		writeError(w, http.StatusBadRequest, "not a wallet callback", model.CodeInvalidCallback)
		return
	}

	raw := h.redirect
	if r.URL.RawQuery != "" {
		sep := "?"
		if strings.Contains(raw, "?") {
			sep = "&"
		}
		raw += sep + r.URL.RawQuery
	}

	if err := storage.SetExpiring(h.store, storage.KeyBridgeURL, raw, h.captureTTL); err != nil {
		h.log.Error("failed to capture wallet callback", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to capture callback", model.CodeStoreFailed)
		return
	}
	h.log.Info("wallet callback captured", zap.String("flowId", q.Get(deeplink.FlowIDParam)))

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeJSON(w, http.StatusOK, model.CallbackResponse{Captured: true})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(capturedPage))
}

// Connect handles GET /phantom/connect
// @Summary      Start connect
// @Description  Starts a connect flow and returns the wallet link with its QR code
// @Tags         phantom
// @Produce      json
// @Success      200  {object}  model.ConnectResponse
// @Failure      500  {object}  model.ErrorResponse
// @Router       /phantom/connect [get]
func (h *BridgeHandler) Connect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	link, err := h.link.ConnectURL()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), model.CodeConnectFailed)
		return
	}
	qr, err := deeplink.QRCodePNG(link)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), model.CodeQRFailed)
		return
	}

	writeJSON(w, http.StatusOK, model.ConnectResponse{URL: link, QR: qr})
}

// Balance handles GET /phantom/balance
// @Summary      Connected wallet balance
// @Description  Gets the SOL balance of the connected wallet
// @Tags         phantom
// @Produce      json
// @Success      200  {object}  model.WalletBalance
// @Failure      409  {object}  model.ErrorResponse
// @Failure      502  {object}  model.ErrorResponse
// @Router       /phantom/balance [get]
func (h *BridgeHandler) Balance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	balance, err := h.link.Balance(r.Context())
	if err != nil {
		if errors.Is(err, session.ErrNotConnected) {
			writeError(w, http.StatusConflict, err.Error(), model.CodeNotConnected)
			return
		}
		writeError(w, http.StatusBadGateway, err.Error(), model.CodeBalanceFailed)
		return
	}

	writeJSON(w, http.StatusOK, balance)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg, Code: code})
}
