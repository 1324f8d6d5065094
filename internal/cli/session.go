package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/courtside/courtbill/internal/storage"
)

var listFilter string

var createCmd = &cobra.Command{
	Use:   "create <club> <label>",
	Short: "Create a new billing session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := svc.CreateSession(cmd.Context(), args[0], args[1])
		if err != nil {
			if errors.Is(err, storage.ErrExists) {
				return fmt.Errorf("session %s/%s already exists", args[0], args[1])
			}
			return err
		}
		fmt.Printf("Created session %s/%s at %s\n", session.Club, session.Label, session.Path)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions under the data root, newest-opened first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := storage.ListFilter(listFilter)
		if !filter.Valid() {
			return fmt.Errorf("unknown filter %q (want all, flagged, paid or unpaid)", listFilter)
		}
		sessions, err := svc.ListSessions(cmd.Context(), filter)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions.")
			return nil
		}
		for _, s := range sessions {
			state := "unpaid"
			if s.Paid {
				state = "paid"
			}
			if s.Flagged {
				state += ", flagged"
			}
			fmt.Printf("%s/%s\t%d file(s)\t%s\tlast opened %s\n",
				s.Club, s.Label, s.FileCount, state,
				s.LastOpened.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <club> <label>",
	Short: "Delete a session and everything under it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := svc.DeleteSession(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Deleted session %s/%s\n", args[0], args[1])
		return nil
	},
}

var recoverCmd = &cobra.Command{
	Use:   "recover <club> <label>",
	Short: "Rebuild a minimal session record from the directory contents",
	Long: `recover rebuilds the metadata record for a session whose record is
corrupt or missing. Every data file found in the directory is re-read,
its attendee rows reclassified, and the file flagged for manual review;
fee edits, overrides and notes must be re-entered.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, failures, err := svc.RecoverSession(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Recovered session %s/%s with %d file(s), all flagged for review\n",
			session.Club, session.Label, len(session.Files))
		for _, f := range failures {
			fmt.Printf("  warning: %v\n", f)
		}
		return nil
	},
}

var paidCmd = &cobra.Command{
	Use:   "paid <club> <label>",
	Short: "Mark a session as paid out",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openSession(cmd, args[0], args[1]); err != nil {
			return err
		}
		return svc.MarkPaid(cmd.Context())
	},
}

var unpaidCmd = &cobra.Command{
	Use:   "unpaid <club> <label>",
	Short: "Clear a session's paid mark",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openSession(cmd, args[0], args[1]); err != nil {
			return err
		}
		return svc.MarkUnpaid(cmd.Context())
	},
}

var setDataRootCmd = &cobra.Command{
	Use:   "set-data-root <path>",
	Short: "Point the configuration at a different data root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := svc.SetDataRoot(args[0]); err != nil {
			return err
		}
		cfg.DataRoot = args[0]
		if err := cfg.Save(cfgPath); err != nil {
			return err
		}
		fmt.Printf("Data root set to %s\n", args[0])
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listFilter, "filter", "all", "filter sessions: all, flagged, paid, unpaid")
	rootCmd.AddCommand(createCmd, listCmd, deleteCmd, recoverCmd, paidCmd, unpaidCmd, setDataRootCmd)
}
