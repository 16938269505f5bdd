package api

import (
	"net/http"

	_ "github.com/AlexZinkM/walletlink/docs"
	"github.com/AlexZinkM/walletlink/internal/handler"

	httpSwagger "github.com/swaggo/http-swagger"
)

// SetupRouter sets up router with handlers
func SetupRouter(bridge *handler.BridgeHandler) http.Handler {
	mux := http.NewServeMux()

	// Swagger UI
	mux.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	// Phantom bridge endpoints
	mux.HandleFunc("/phantom/relay", bridge.Relay)
	mux.HandleFunc("/phantom/callback", bridge.Callback)
	mux.HandleFunc("/phantom/connect", bridge.Connect)
	mux.HandleFunc("/phantom/balance", bridge.Balance)

	return mux
}
