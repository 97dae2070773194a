package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"netbackup/internal/config"
	"netbackup/internal/diffcheck"
	"netbackup/internal/history"
	"netbackup/internal/inventory"
	"netbackup/internal/models"
	"netbackup/internal/providers/aws"
	"netbackup/internal/report"
	"netbackup/internal/selector"
	"netbackup/internal/session"
	"netbackup/internal/snapshot"
	"netbackup/pkg/logging"
)

// globalOptions holds the persistent flags and the collaborators built from them.
type globalOptions struct {
	configPath    string
	inventoryPath string
	ec2Tag        string
	backupDir     string
	outputFormat  string
	logLevel      string
	historyDB     string

	settings *config.Settings
	format   report.OutputFormatType
	logger   *logging.DefaultLogger
	store    *snapshot.Store
	printer  report.IPrinter
	history  *history.DB
}

// init loads settings and builds the shared collaborators.
func (o *globalOptions) init(cmd *cobra.Command) error {
	o.logger = logging.NewLogger(cmd.ErrOrStderr(), logging.StringToLogLevel(o.logLevel))

	settings, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.backupDir != "" {
		settings.Backup.BackupDir = o.backupDir
	}
	if o.historyDB != "" {
		settings.History.DBPath = o.historyDB
	}
	o.settings = settings

	if o.format, err = report.ParseFormat(o.outputFormat); err != nil {
		return err
	}

	o.store = snapshot.NewStore(settings.Backup.BackupDir, o.logger)
	o.printer = report.NewPrinter(cmd.OutOrStdout())

	if settings.History.DBPath != "" {
		if o.history, err = history.NewDB(settings.History.DBPath, o.logger); err != nil {
			return fmt.Errorf("cannot open history database: %w", err)
		}
	}
	return nil
}

// close releases the history database and flushes the logger.
func (o *globalOptions) close() {
	if o.history != nil {
		if err := o.history.Close(); err != nil {
			o.logger.Warn("Failed to close history database: %v", err)
		}
	}
	if o.logger != nil {
		_ = o.logger.Sync()
	}
}

// inventorySource picks EC2 discovery when a tag is given, else the inventory file.
func (o *globalOptions) inventorySource(ctx context.Context) (inventory.Source, error) {
	if o.ec2Tag != "" {
		discovery, err := aws.NewDiscoveryServiceWithDefaultConfig(ctx, o.ec2Tag, o.logger)
		if err != nil {
			return nil, err
		}
		return discovery, nil
	}
	loader := inventory.NewLoader(inventory.Credentials{
		Username: o.settings.Session.Username,
		Password: o.settings.Session.Password,
	}, o.logger)
	return inventory.NewFileSource(o.inventoryPath, loader), nil
}

// devices loads the device inventory.
func (o *globalOptions) devices(ctx context.Context) ([]models.Device, error) {
	source, err := o.inventorySource(ctx)
	if err != nil {
		return nil, err
	}
	return loadDevices(ctx, source)
}

// loadDevices reads and validates the inventory from source.
func loadDevices(ctx context.Context, source inventory.Source) ([]models.Device, error) {
	devices, err := source.Devices(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot load inventory: %w", err)
	}
	if err := inventory.Validate(devices); err != nil {
		return nil, fmt.Errorf("invalid inventory: %w", err)
	}
	return devices, nil
}

// connector builds the session connector selected by the settings.
func (o *globalOptions) connector() (session.Connector, error) {
	s := o.settings.Session
	if s.Mode == config.SessionModeSSH {
		conn, err := session.NewSSHConnector(session.SSHConfig{
			Timeout:    s.Timeout,
			KnownHosts: s.KnownHosts,
			Username:   s.Username,
			Password:   s.Password,
		}, o.logger)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}

	return session.NewSimulatedConnector(o.logger,
		session.WithFailurePolicy(session.RandomFailures(s.ConnectFailureRate, s.RetrieveFailureRate, uint64(time.Now().UnixNano()))),
		session.WithDelay(s.SimulatedDelay),
	), nil
}

// selector builds a backup selector over the store.
func (o *globalOptions) selector() *selector.Selector {
	checker := diffcheck.NewChecker(o.settings.IgnorePatterns(), o.logger)
	return selector.New(o.store, checker, o.logger)
}

// recordComparisons stores comparison outcomes when history is enabled.
func (o *globalOptions) recordComparisons(ctx context.Context, results ...*diffcheck.ComparisonResult) {
	if o.history == nil {
		return
	}
	for _, r := range results {
		if err := o.history.RecordComparison(ctx, r); err != nil {
			o.logger.Warn("Failed to record comparison for %s: %v", r.Device, err)
		}
	}
}
