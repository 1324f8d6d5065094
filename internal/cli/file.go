package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/courtside/courtbill/internal/flagging"
	"github.com/courtside/courtbill/internal/models"
)

var importCmd = &cobra.Command{
	Use:   "import <club> <label> <file>...",
	Short: "Import attendance files (CSV or XLSX) into a session",
	Long: `import copies each file into the session directory, classifies every
attendee's payment note, computes the file total and flags the file if
any record could not be classified. Files that fail to import are
reported; the rest of the batch proceeds.`,
	Args: cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openSession(cmd, args[0], args[1]); err != nil {
			return err
		}
		result, err := svc.ImportFiles(cmd.Context(), args[2:])
		if err != nil {
			return err
		}
		for _, f := range result.Files {
			state := "ok"
			if f.Flagged {
				state = "flagged for review"
			}
			fmt.Printf("  %s: %d record(s), %s\n", f.Filename, len(f.Records), state)
		}
		for _, e := range result.Errors {
			fmt.Printf("  failed: %v\n", e)
		}
		if len(result.Errors) > 0 {
			return fmt.Errorf("%d file(s) failed to import", len(result.Errors))
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <club> <label> <file> <record-index> <status>",
	Short: "Override a record's attendee status",
	Long: `status sets an attendee record's status by hand. The override is
authoritative: reclassification never changes it. Valid statuses:
regular, manual, waitlist, comped, refund, other.`,
	Args: cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openSession(cmd, args[0], args[1]); err != nil {
			return err
		}
		index, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("record index %q is not a number", args[3])
		}
		return svc.SetStatus(cmd.Context(), args[2], index, models.Status(args[4]))
	},
}

var noteCmd = &cobra.Command{
	Use:   "note <club> <label> <file> <record-index> <text>",
	Short: "Set a record's free-form annotation",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openSession(cmd, args[0], args[1]); err != nil {
			return err
		}
		index, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("record index %q is not a number", args[3])
		}
		return svc.SetAnkleNote(cmd.Context(), args[2], index, args[4])
	},
}

var feeCmd = &cobra.Command{
	Use:   "fee",
	Short: "Manage a file's fee schedule",
}

var feeSetCmd = &cobra.Command{
	Use:   "set <club> <label> <file> <status> <amount>",
	Short: "Set the fee for a status on a file",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openSession(cmd, args[0], args[1]); err != nil {
			return err
		}
		amount, err := strconv.ParseFloat(args[4], 64)
		if err != nil {
			return fmt.Errorf("amount %q is not a number", args[4])
		}
		return svc.SetFee(cmd.Context(), args[2], models.Status(args[3]), amount)
	},
}

var feeResetCmd = &cobra.Command{
	Use:   "reset <club> <label> <file>",
	Short: "Reset every status on a file to the default fee",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openSession(cmd, args[0], args[1]); err != nil {
			return err
		}
		return svc.ResetAllFees(cmd.Context(), args[2])
	},
}

var flagCmd = &cobra.Command{
	Use:   "flag <club> <label> <file>",
	Short: "Re-run flag derivation for a file",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openSession(cmd, args[0], args[1]); err != nil {
			return err
		}
		moved, err := svc.FlagIfNeeded(cmd.Context(), args[2])
		if err != nil {
			return err
		}
		if moved {
			fmt.Printf("%s flagged\n", args[2])
		} else {
			fmt.Printf("%s unchanged\n", args[2])
		}
		return nil
	},
}

var unflagCmd = &cobra.Command{
	Use:   "unflag <club> <label> <file>",
	Short: "Unflag a file once every record is resolved",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openSession(cmd, args[0], args[1]); err != nil {
			return err
		}
		moved, err := svc.AttemptUnflag(cmd.Context(), args[2])
		if err != nil {
			var unresolved *flagging.UnresolvedError
			if errors.As(err, &unresolved) {
				return fmt.Errorf("%s still has %d unresolved record(s); set their statuses first",
					unresolved.Filename, unresolved.Unresolved)
			}
			return err
		}
		if moved {
			fmt.Printf("%s unflagged\n", args[2])
		} else {
			fmt.Printf("%s was not flagged\n", args[2])
		}
		return nil
	},
}

func init() {
	feeCmd.AddCommand(feeSetCmd, feeResetCmd)
	rootCmd.AddCommand(importCmd, statusCmd, noteCmd, feeCmd, flagCmd, unflagCmd)
}
