package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var compedCmd = &cobra.Command{
	Use:   "comped",
	Short: "Manage the comped attendee list",
	Long: `The comped list holds attendee names that always classify as comped,
regardless of their payment note. It is shared across all sessions under
the data root and applies to imports and reloads from then on; already
loaded sessions are not reclassified.`,
}

var compedAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a name to the comped list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return svc.CompedAdd(cmd.Context(), args[0])
	},
}

var compedRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a name from the comped list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return svc.CompedRemove(cmd.Context(), args[0])
	},
}

var compedListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the comped list",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := svc.CompedNames(cmd.Context())
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("Comped list is empty.")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	compedCmd.AddCommand(compedAddCmd, compedRemoveCmd, compedListCmd)
	rootCmd.AddCommand(compedCmd)
}
