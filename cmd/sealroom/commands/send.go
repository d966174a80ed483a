package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sealroom/internal/domain"
)

func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <room> <message...>",
		Short: "Encrypt and send a message to a room",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(defaultHandlers())
			if err != nil {
				return err
			}
			defer a.Close()

			room := domain.RoomID(args[0])
			body := strings.Join(args[1:], " ")
			msg, err := a.Sync.Send(cmd.Context(), room, []byte(body))
			if errors.Is(err, domain.ErrKeyNotAvailable) {
				return fmt.Errorf("no key for room %s yet; ask a member for a grant", room)
			}
			if err != nil {
				return err
			}
			fmt.Printf("Sent to %s under key version %d\n", room, msg.KeyVersion)
			return nil
		},
	}
}
