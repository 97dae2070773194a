package main

import (
	"errors"

	"github.com/spf13/cobra"

	"netbackup/internal/config"
	"netbackup/internal/orchestrator"
)

func newBackupCommand(opts *globalOptions) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up the running configuration of every inventory device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			devices, err := opts.devices(ctx)
			if err != nil {
				return err
			}
			connector, err := opts.connector()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("concurrency") {
				opts.settings.Backup.Concurrency = concurrency
			}
			backupType := orchestrator.BackupTypeLive
			if opts.settings.Session.Mode == config.SessionModeSimulated {
				backupType = orchestrator.BackupTypeSimulated
			}

			service := orchestrator.NewService(orchestrator.Config{
				ConcurrencyLimit: opts.settings.Backup.Concurrency,
				BackupType:       backupType,
			}, connector, opts.store, opts.logger)
			if opts.history != nil {
				service.WithRecorder(opts.history)
			}

			result, err := service.BackupAll(ctx, devices)
			if err != nil {
				return err
			}
			if err := opts.printer.PrintFleetResult(result, opts.format); err != nil {
				return err
			}

			if len(result.Failed) > 0 {
				return &exitStatus{code: exitError}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Maximum number of devices to back up concurrently (0: all at once)")
	return cmd
}

func newCompareCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <device>",
		Short: "Compare the two most recent backups of a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result := opts.selector().CompareLatestTwo(args[0])
			opts.recordComparisons(cmd.Context(), result)

			if err := opts.printer.PrintComparison(result, opts.format); err != nil {
				return err
			}

			// Set exit code based on whether changes were detected
			switch {
			case result.HasChanges():
				return &exitStatus{code: exitChanges}
			case result.Failed():
				return &exitStatus{code: exitError}
			}
			return nil
		},
	}
}

func newCheckAllCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-all",
		Short: "Compare the two most recent backups of every inventory device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			devices, err := opts.devices(ctx)
			if err != nil {
				return err
			}

			summary := opts.selector().CheckAll(devices)
			opts.recordComparisons(ctx, summary.Results...)

			if err := opts.printer.PrintChangeSummary(summary, opts.format); err != nil {
				return err
			}

			if summary.DevicesWithChanges > 0 {
				return &exitStatus{code: exitChanges}
			}
			return nil
		},
	}
}

func newListCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <device>",
		Short: "List the stored backups of a device, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snaps, err := opts.selector().ListBackups(args[0])
			if err != nil {
				return err
			}
			return opts.printer.PrintSnapshots(args[0], snaps, opts.format)
		},
	}
}

func newHistoryCommand(opts *globalOptions) *cobra.Command {
	var (
		limit  int
		device string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent backup runs, or one device's comparisons, from the history database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.history == nil {
				return errNoHistory
			}
			if cmd.Flags().Changed("device") {
				if device == "" {
					return errors.New("--device requires a device name")
				}
				records, err := opts.history.DeviceComparisons(cmd.Context(), device, limit)
				if err != nil {
					return err
				}
				return opts.printer.PrintComparisonHistory(device, records, opts.format)
			}
			runs, err := opts.history.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return opts.printer.PrintRuns(runs, opts.format)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of records to show")
	cmd.Flags().StringVar(&device, "device", "", "Show stored comparisons for this device instead of runs")
	return cmd
}
