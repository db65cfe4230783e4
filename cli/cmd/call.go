package cmd

import (
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:     "create",
	Aliases: []string{"c"},
	Short:   "Create a room and wait for someone to join",
	Long: `Create a new room and wait for a peer to join it. The room code is
printed once the server has registered it; share it with the other side.

Examples:
  warpcall create --video cam.ivf --audio mic.ogg
  warpcall create --server signal.example.com --relay --turn turn.example.com`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCall(cmd.Context(), "")
	},
}

var joinCmd = &cobra.Command{
	Use:     "join <code>",
	Aliases: []string{"j"},
	Short:   "Join a room by its code",
	Long: `Join the room a peer created and start the call.

Examples:
  warpcall join k3x9q2 --video cam.ivf --audio mic.ogg
  warpcall join k3x9q2 --timeout 30s`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCall(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(joinCmd)
}
