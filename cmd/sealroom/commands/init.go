package commands

import (
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate identity keys and store them securely",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			svc, err := identityService()
			if err != nil {
				return err
			}
			pair, fp, err := svc.Ensure(passphrase)
			if err != nil {
				return err
			}
			fmt.Printf("Identity ready.\nFingerprint: %s\nPublic key:  %s\n", fp, base64.StdEncoding.EncodeToString(pair.Public.Slice()))

			// Publish the public half if a relay and user id are configured.
			if cfg.RelayURL != "" && cfg.UserID != "" {
				a, err := buildApp(defaultHandlers())
				if err != nil {
					return err
				}
				defer a.Close()
				if err := a.Relay.RegisterIdentity(cmd.Context(), a.Rooms.Self(), pair.Public); err != nil {
					return err
				}
				fmt.Printf("Public key registered as %s\n", cfg.UserID)
			}
			return nil
		},
	}
}
