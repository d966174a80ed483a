package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"sealroom/internal/domain"
)

func roomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Manage room keys",
	}
	cmd.AddCommand(roomCreateCmd(), roomGrantCmd(), roomRotateCmd())
	return cmd
}

func roomCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <room> [member...]",
		Short: "Create a room and distribute its first key",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(defaultHandlers())
			if err != nil {
				return err
			}
			defer a.Close()

			members := make([]domain.UserID, 0, len(args)-1)
			for _, m := range args[1:] {
				members = append(members, domain.UserID(m))
			}
			if err := a.Sync.ShareRoom(cmd.Context(), domain.RoomID(args[0]), members); err != nil {
				return err
			}
			fmt.Printf("Room %s created with %d member(s)\n", args[0], len(members)+1)
			return nil
		},
	}
}

func roomGrantCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grant <room> <member>",
		Short: "Grant the active room key to a late joiner",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(defaultHandlers())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Sync.GrantMember(cmd.Context(), domain.RoomID(args[0]), domain.UserID(args[1])); err != nil {
				return err
			}
			fmt.Printf("Granted %s access to %s\n", args[1], args[0])
			return nil
		},
	}
}

func roomRotateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rotate <room> <removed-member>",
		Short: "Rotate a room key after a member was removed",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(defaultHandlers())
			if err != nil {
				return err
			}
			defer a.Close()

			change := domain.MembershipChange{
				RoomID:        domain.RoomID(args[0]),
				RemovedUserID: domain.UserID(args[1]),
			}
			if err := a.Sync.HandleEnvelope(cmd.Context(), domain.NewMembershipEnvelope(change)); err != nil {
				return err
			}
			v, err := a.Rooms.ActiveVersion(change.RoomID)
			if err != nil {
				return err
			}
			fmt.Printf("Room %s rotated to key version %d\n", args[0], v)
			return nil
		},
		Args: cobra.ExactArgs(2),
	}
}
