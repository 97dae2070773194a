package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Exit codes
const (
	exitOK      = 0
	exitError   = 1
	exitChanges = 2
)

// exitStatus carries a non-zero exit code out of a command without an error message.
type exitStatus struct {
	code int
}

func (e *exitStatus) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := &globalOptions{}
	defer opts.close()

	rootCmd := newRootCommand(opts)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	var status *exitStatus
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &status):
		return status.code
	default:
		fmt.Fprintln(stderr, "Error:", err)
		return exitError
	}
}

func newRootCommand(opts *globalOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "netbackup",
		Short: "Back up network device configurations and detect changes between backups",
		// exit codes are reported by run, not as usage errors
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "config/settings.yaml", "Path to the settings file")
	flags.StringVar(&opts.inventoryPath, "inventory", "config/devices.yaml", "Path to the device inventory (.yaml, .yml, .hcl)")
	flags.StringVar(&opts.ec2Tag, "ec2-tag", "", "Discover devices from EC2 instances carrying this tag instead of reading --inventory")
	flags.StringVar(&opts.backupDir, "backup-dir", "", "Override the backup directory")
	flags.StringVar(&opts.outputFormat, "output", "table", "Output format: table, json or text")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	flags.StringVar(&opts.historyDB, "history-db", "", "Override the SQLite history database path")

	rootCmd.AddCommand(
		newBackupCommand(opts),
		newCompareCommand(opts),
		newCheckAllCommand(opts),
		newListCommand(opts),
		newHistoryCommand(opts),
	)
	return rootCmd
}

var errNoHistory = errors.New("history database is not configured: set history.db_path or --history-db")
