package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"sealroom/internal/domain"
	"sealroom/internal/syncproto"
)

// defaultHandlers renders decrypted traffic to stdout. Gap and tamper states
// print placeholders, mirroring how a UI must treat them: a gap resolves
// itself once the grant arrives, a tamper warning is permanent.
func defaultHandlers() syncproto.Handlers {
	return syncproto.Handlers{
		OnMessage: func(msg domain.EncryptedMessage, plaintext []byte) {
			fmt.Printf("[%s] %s: %s\n", msg.RoomID, msg.SenderID, plaintext)
		},
		OnGap: func(msg domain.EncryptedMessage, gap *domain.GapError) {
			fmt.Printf("[%s] %s: <waiting for key version %d>\n", msg.RoomID, msg.SenderID, gap.Version)
		},
		OnTamper: func(msg domain.EncryptedMessage) {
			fmt.Printf("[%s] %s: <message failed verification>\n", msg.RoomID, msg.SenderID)
		},
	}
}

func recvCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recv",
		Short: "Fetch queued envelopes and process them",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(defaultHandlers())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			envs, err := a.Relay.FetchEnvelopes(ctx, a.Rooms.Self(), limit)
			if err != nil {
				return err
			}

			// Ack only what was handled, so a mid-stream failure leaves the
			// rest queued for the next run.
			processed, handleErr := a.Sync.HandleAll(ctx, envs)
			if processed > 0 {
				if err := a.Relay.AckEnvelopes(ctx, a.Rooms.Self(), processed); err != nil {
					return fmt.Errorf("ack %d envelopes: %w", processed, err)
				}
			}
			if handleErr != nil {
				return handleErr
			}
			fmt.Printf("Processed %d of %d envelope(s)\n", processed, len(envs))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum envelopes to fetch")
	return cmd
}
