// Package cli implements the courtbill command line interface. Each
// invocation loads the configuration, opens the stores under the data
// root, runs one command against the session service and exits.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/courtside/courtbill/internal/config"
	"github.com/courtside/courtbill/internal/service"
	"github.com/courtside/courtbill/internal/storage"
	"github.com/courtside/courtbill/internal/storage/compedstore"
	"github.com/courtside/courtbill/internal/storage/metastore"
	"github.com/courtside/courtbill/pkg/logging"
)

var (
	cfgPath string
	cfg     *config.Config
	svc     *service.SessionService
	comped  storage.CompedStore
)

var rootCmd = &cobra.Command{
	Use:   "courtbill",
	Short: "Club session billing: import attendance files, classify payments, track flags and totals",
	Long: `courtbill manages club billing sessions. It imports attendance exports
(CSV or XLSX), classifies each attendee's payment note, computes per-file
and session totals, and keeps files with unresolved records quarantined
in a flagged directory until every record is resolved.

Session state is stored as plain JSON under the data root, one directory
per club and session label.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if comped != nil {
			comped.Close()
		}
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "courtbill.yaml", "path to the configuration file")
}

func setup() error {
	var err error
	cfg, err = config.Load(cfgPath)
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel)

	store, cs, err := openStores(cfg.DataRoot)
	if err != nil {
		return err
	}
	comped = cs
	svc = service.NewSessionService(store, cs, cfg.PlatformShare, openStores)
	return nil
}

func openStores(dataRoot string) (storage.Store, storage.CompedStore, error) {
	store, err := metastore.New(dataRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open data root %s: %w", dataRoot, err)
	}
	cs, err := compedstore.Open(dataRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open comped database: %w", err)
	}
	return store, cs, nil
}

// openSession activates club/label for this invocation and prints any
// recoverable conditions the load found.
func openSession(cmd *cobra.Command, club, label string) error {
	_, report, err := svc.OpenSession(cmd.Context(), club, label)
	if err != nil {
		return err
	}
	for _, name := range report.Missing {
		fmt.Printf("warning: %s is referenced by the session but missing on disk\n", name)
	}
	for _, name := range report.Repaired {
		fmt.Printf("note: flag state of %s was repaired from its on-disk location\n", name)
	}
	return nil
}
