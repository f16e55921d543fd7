package app

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/dartmouth/accountsync/internal/planon"
	"github.com/dartmouth/accountsync/internal/sync"
	"github.com/dartmouth/accountsync/pkg/errors"
)

// newSyncCommand creates the sync command, the reconciliation run itself.
func (a *App) newSyncCommand() *cobra.Command {
	var (
		dryRun       bool
		excludesPath string
		policyPath   string
		runDate      string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile Planon accounts against the identity roster",
		Long: `Sync runs the four reconciliation passes in order: insert accounts
for new eligible people, refresh stale display names, deactivate accounts
for people no longer on the roster, and raise the password-never-expires
flag on active accounts that predate it.

The run exits 65 when an insert was skipped over a name collision or an
account was created but could not be linked to a person; those records
need manual review. Per-record failures of any other kind are logged and
do not change the exit status.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSync(cmd, dryRun, excludesPath, policyPath, runDate)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute and log planned actions without mutating the directory")
	cmd.Flags().StringVar(&excludesPath, "excludes", "", "path to the deactivation exclusion registry (default "+sync.DefaultExcludesFile+")")
	cmd.Flags().StringVar(&policyPath, "policy", "", "path to a policy YAML overriding the built-in defaults")
	cmd.Flags().StringVar(&runDate, "run-date", "", "run date as YYYY-MM-DD for reproducing a past run (default today)")

	return cmd
}

// runSync assembles the clients and inputs, runs the reconciliation, and
// maps the result's exit policy onto the process exit status.
func (a *App) runSync(cmd *cobra.Command, dryRun bool, excludesPath, policyPath, runDate string) error {
	opts := []sync.Option{
		sync.WithDryRun(dryRun),
		sync.WithLogger(a.logger),
	}
	if runDate != "" {
		t, err := time.Parse(planon.DateFormat, runDate)
		if err != nil {
			return errors.NewValidationError("run-date", runDate, "must be formatted YYYY-MM-DD")
		}
		opts = append(opts, sync.WithRunDate(t))
	}

	roster, err := a.Roster()
	if err != nil {
		return err
	}
	directory, err := a.Planon()
	if err != nil {
		return err
	}

	// Flags beat config file values
	if policyPath == "" {
		policyPath = a.config.PolicyFile
	}
	policy := sync.DefaultPolicy()
	if policyPath != "" {
		policy, err = sync.LoadPolicy(policyPath)
		if err != nil {
			return err
		}
	}

	if excludesPath == "" {
		excludesPath = a.config.ExcludesFile
	}
	if excludesPath == "" {
		excludesPath = sync.DefaultExcludesFile
	}
	excludes, err := sync.LoadExcludes(excludesPath)
	if err != nil {
		return err
	}

	syncer := sync.New(roster, directory, policy, excludes, opts...)
	result, err := syncer.Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), result.Summary())

	if code := result.ExitCode(); code != 0 {
		return errors.NewExitError(code, nil)
	}
	return nil
}

// newVersionCommand creates the version command.
func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Show version information for the accountsync CLI.`,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "accountsync version %s\n", a.version)
			fmt.Fprintf(out, "commit: %s\n", a.commit)
			fmt.Fprintf(out, "built: %s\n", a.date)
			fmt.Fprintf(out, "built by: %s\n", a.builtBy)
			fmt.Fprintf(out, "go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
