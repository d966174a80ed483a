package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sealroom/internal/app"
	"sealroom/internal/crypto"
	"sealroom/internal/services/identity"
	"sealroom/internal/store"
	"sealroom/internal/syncproto"
)

var (
	cfgPath    string
	dataDir    string
	passphrase string
	relayURL   string
	userID     string

	cfg Config
	log zerolog.Logger
)

// Config aliases app.Config so subcommands read one merged view of file and
// flags.
type Config = app.Config

func Execute() error {
	root := &cobra.Command{
		Use:           "sealroom",
		Short:         "End-to-end encrypted room chat CLI",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgPath == "" {
				if home, err := os.UserHomeDir(); err == nil {
					cfgPath = filepath.Join(home, ".sealroom", "sealroom.toml")
				}
			}
			loaded, err := app.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			cfg = loaded

			// Flags override the file.
			if dataDir != "" {
				cfg.DataDir = dataDir
			}
			if relayURL != "" {
				cfg.RelayURL = relayURL
			}
			if userID != "" {
				cfg.UserID = userID
			}
			if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
				return err
			}

			level, err := zerolog.ParseLevel(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("log_level %q: %w", cfg.LogLevel, err)
			}
			log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				Level(level).
				With().Timestamp().Logger()
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.sealroom/sealroom.toml)")
	root.PersistentFlags().StringVar(&dataDir, "home", "", "data dir (default ~/.sealroom)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting local keys")
	root.PersistentFlags().StringVar(&relayURL, "relay", "", "relay base URL (e.g. http://127.0.0.1:8080)")
	root.PersistentFlags().StringVarP(&userID, "user", "u", "", "registered user id")

	root.AddCommand(initCmd(), fingerprintCmd(), roomCmd(), sendCmd(), recvCmd())
	return root.Execute()
}

// identityService builds only what identity commands need.
func identityService() (*identity.Service, error) {
	provider, err := crypto.NewProvider()
	if err != nil {
		return nil, err
	}
	return identity.New(provider, store.NewFileStore(cfg.DataDir)), nil
}

// buildApp assembles the full graph for commands that talk to the relay.
func buildApp(handlers syncproto.Handlers) (*app.App, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase required (-p)")
	}
	return app.Build(cfg, passphrase, log, handlers)
}
