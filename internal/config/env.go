package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/term"
)

// Supported platforms. The platform decides how an outbound request reaches the wallet.
const (
	PlatformNative    = "native"     // OS deep link straight to the wallet app
	PlatformWebMobile = "web-mobile" // mobile browser, navigation goes through the relay page
	PlatformDesktop   = "desktop"    // browser extension provider, no deep link
)

// Supported store backends.
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config contains all configuration parameters for the application.
// Note: the store passphrase is prompted at runtime and stored in memory - use GetStorePasswordBytes()
type Config struct {
	Port           string `envconfig:"PORT" default:"8080"`
	BackendURL     string `envconfig:"BACKEND_URL" required:"true"`
	PhantomBaseURL string `envconfig:"PHANTOM_BASE_URL" default:"https://phantom.app/ul/v1"`
	AppURL         string `envconfig:"APP_URL" required:"true"`
	RedirectLink   string `envconfig:"REDIRECT_LINK" required:"true"`
	RelayURL       string `envconfig:"RELAY_URL"`
	Platform       string `envconfig:"PLATFORM" default:"native"`
	Cluster        string `envconfig:"CLUSTER" default:"mainnet-beta"`
	SolanaRPCURL   string `envconfig:"SOLANA_RPC_URL"` // defaults to the cluster's public endpoint

	StoreBackend string `envconfig:"STORE_BACKEND" default:"file"`
	StorePath    string `envconfig:"STORE_PATH" default:"walletlink.store"`
	RedisAddr    string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`

	PendingFlowTTL     time.Duration `envconfig:"PENDING_FLOW_TTL" default:"30m"`
	BridgePollInterval time.Duration `envconfig:"BRIDGE_POLL_INTERVAL" default:"1s"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile  string `envconfig:"LOG_FILE"`
}

// cfg is the global configuration instance
var cfg *Config

// Init loads configuration from environment variables.
func Init() error {
	c, err := Load()
	if err != nil {
		return err
	}
	cfg = c
	return nil
}

// Load reads and validates a Config from the environment without touching the global instance.
func Load() (*Config, error) {
	c := &Config{}
	if err := envconfig.Process("", c); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the global configuration instance.
// Panics if Init() was not called.
func Get() *Config {
	if cfg == nil {
		panic("config not initialized, call Init() first")
	}
	return cfg
}

// Validate checks values envconfig cannot express as tags.
func (c *Config) Validate() error {
	switch c.Platform {
	case PlatformNative, PlatformDesktop:
	case PlatformWebMobile:
		if c.RelayURL == "" {
			return errors.New("RELAY_URL is required on the web-mobile platform")
		}
	default:
		return fmt.Errorf("unknown platform %q", c.Platform)
	}

	switch c.StoreBackend {
	case StoreFile, StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}

	endpoint, ok := clusterRPC(c.Cluster)
	if !ok {
		return fmt.Errorf("unknown cluster %q", c.Cluster)
	}
	if c.SolanaRPCURL == "" {
		c.SolanaRPCURL = endpoint
	}

	if c.PendingFlowTTL <= 0 {
		return errors.New("PENDING_FLOW_TTL must be positive")
	}

	c.BackendURL = strings.TrimRight(c.BackendURL, "/")
	c.PhantomBaseURL = strings.TrimRight(c.PhantomBaseURL, "/")
	return nil
}

// clusterRPC returns the public RPC endpoint of a cluster the wallet accepts.
func clusterRPC(name string) (string, bool) {
	for _, cl := range []rpc.Cluster{rpc.MainNetBeta, rpc.TestNet, rpc.DevNet} {
		if cl.Name == name {
			return cl.RPC, true
		}
	}
	return "", false
}

var passwordBytes []byte

// PromptForPassword prompts the user for the store passphrase in the terminal.
// The passphrase is read without echoing (hidden input) and stored in memory.
// Call this at startup before the store file is opened.
func PromptForPassword() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("stdin is not a terminal: run the app interactively to enter password")
	}
	fmt.Fprint(os.Stderr, "Enter store password: ")
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	SetStorePassword(raw)
	clear(raw)
	if len(passwordBytes) == 0 {
		return errors.New("password cannot be empty")
	}
	return nil
}

// SetStorePassword keeps a copy of raw as the store passphrase.
func SetStorePassword(raw []byte) {
	clear(passwordBytes)
	passwordBytes = make([]byte, len(raw))
	copy(passwordBytes, raw)
}

// GetStorePasswordBytes returns the passphrase stored in memory (from PromptForPassword).
// Returns an error if the passphrase was not set.
// Caller must zero the returned slice after use for security.
func GetStorePasswordBytes() ([]byte, error) {
	if len(passwordBytes) == 0 {
		return nil, errors.New("password not set: call PromptForPassword at startup")
	}
	out := make([]byte, len(passwordBytes))
	copy(out, passwordBytes)
	return out, nil
}
