package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/AlexZinkM/walletlink/internal/client"
	"github.com/AlexZinkM/walletlink/internal/config"
	"github.com/AlexZinkM/walletlink/internal/crypto"
	"github.com/AlexZinkM/walletlink/internal/deeplink"
	"github.com/AlexZinkM/walletlink/internal/logger"
	"github.com/AlexZinkM/walletlink/internal/model"
	"github.com/AlexZinkM/walletlink/internal/session"
	"github.com/AlexZinkM/walletlink/internal/storage"
	"github.com/AlexZinkM/walletlink/phantom"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app is what every subcommand works with, built once in the persistent pre-run.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	store storage.Store
	link  *phantom.Link
	close func()
}

var current *app

var rootCmd = &cobra.Command{
	Use:           "walletlink",
	Short:         "Phantom wallet link for the marketplace backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := setUp()
		if err != nil {
			return err
		}
		current = a
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if current != nil {
			current.close()
		}
	},
}

func setUp() (*app, error) {
	if err := config.Init(); err != nil {
		return nil, err
	}
	cfg := config.Get()

	log, err := logger.SetUp(logger.Conf{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return nil, err
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	keys := session.NewManager(store, log.Named("session"))
	builder := deeplink.NewBuilder(deeplink.Options{
		BaseURL:      cfg.PhantomBaseURL,
		AppURL:       cfg.AppURL,
		RedirectLink: cfg.RedirectLink,
		Cluster:      cfg.Cluster,
		RelayURL:     cfg.RelayURL,
	}, keys)

	link := phantom.New(
		phantom.SettingsFromConfig(cfg),
		keys,
		builder,
		store,
		client.NewBackendClient(cfg.BackendURL, nil),
		phantom.WithLogger(log.Named("phantom")),
		phantom.WithNavigator(phantom.NavigatorFunc(printLink)),
		phantom.WithEvents(printEvent),
		phantom.WithBalances(client.NewSolanaClient(cfg.SolanaRPCURL)),
	)

	return &app{
		cfg:   cfg,
		log:   log,
		store: store,
		link:  link,
		close: func() {
			closeStore()
			_ = log.Sync()
		},
	}, nil
}

func openStore(cfg *config.Config) (storage.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return storage.NewMemoryStore(), func() {}, nil
	case config.StoreRedis:
		return storage.NewRedisStore(cfg.RedisAddr, "walletlink"), func() {}, nil
	default:
		if err := config.PromptForPassword(); err != nil {
			return nil, nil, err
		}
		pw, err := config.GetStorePasswordBytes()
		if err != nil {
			return nil, nil, err
		}
		defer clear(pw)

		fs, err := storage.OpenFileStore(cfg.StorePath, pw, crypto.DefaultScryptN)
		if err != nil {
			return nil, nil, err
		}
		return fs, fs.Close, nil
	}
}

// printLink stands in for the OS deep link handler: the user opens the link or scans the code.
func printLink(_ context.Context, url string) error {
	fmt.Fprintln(os.Stdout, url)
	if qr, err := deeplink.QRCodeTerminal(url); err == nil {
		fmt.Fprint(os.Stdout, qr)
	}
	return nil
}

func printEvent(ev model.Event) {
	out, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintln(os.Stdout, string(out))
}
