package inventory

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"netbackup/internal/models"
	"netbackup/pkg/logging"
)

// Credentials fill in login details for devices whose inventory entry and
// defaults leave them empty.
type Credentials struct {
	Username string
	Password string
}

// Loader reads device inventories from YAML or HCL files.
type Loader struct {
	credentials Credentials
	logger      logging.Logger
}

// NewLoader creates a Loader. creds is applied last, after file defaults.
func NewLoader(creds Credentials, logger logging.Logger) *Loader {
	return &Loader{credentials: creds, logger: logger}
}

// Load reads the inventory at path, choosing the format by extension:
// .yaml and .yml are YAML, .hcl and .tf are HCL.
func (l *Loader) Load(path string) ([]models.Device, error) {
	var (
		devices  []models.Device
		defaults Defaults
		err      error
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		devices, defaults, err = l.ParseYAML(path)
	case ".hcl", ".tf":
		devices, defaults, err = l.ParseHCL(path)
	default:
		return nil, fmt.Errorf("unsupported inventory format %q: %s", ext, path)
	}
	if err != nil {
		return nil, err
	}

	for i := range devices {
		devices[i] = l.fill(devices[i], defaults)
	}
	if err := Validate(devices); err != nil {
		return nil, fmt.Errorf("invalid inventory %s: %w", path, err)
	}

	l.logger.Info("Loaded %d devices from %s", len(devices), path)
	for _, d := range devices {
		l.logger.Debug("Device: %s - %s (%s, site %s)", d.Name, d.Host, d.DeviceType, d.Site)
	}
	return devices, nil
}

// fill applies file defaults and then the loader's credentials to empty fields.
func (l *Loader) fill(d models.Device, defaults Defaults) models.Device {
	if d.DeviceType == "" {
		d.DeviceType = defaults.DeviceType
	}
	if d.Site == "" {
		d.Site = defaults.Site
	}
	if d.Port == 0 {
		d.Port = defaults.Port
	}
	if d.Username == "" {
		d.Username = defaults.Username
	}
	if d.Password == "" {
		d.Password = defaults.Password
	}
	if d.Username == "" {
		d.Username = l.credentials.Username
	}
	if d.Password == "" {
		d.Password = l.credentials.Password
	}
	return d
}

// Validate checks that every device has a unique, non-empty name and a host.
func Validate(devices []models.Device) error {
	seen := make(map[string]struct{}, len(devices))
	for i, d := range devices {
		if d.Name == "" {
			return fmt.Errorf("device at position %d has no name", i)
		}
		if d.Host == "" {
			return fmt.Errorf("device %s has no host", d.Name)
		}
		if _, dup := seen[d.Name]; dup {
			return fmt.Errorf("duplicate device name: %s", d.Name)
		}
		seen[d.Name] = struct{}{}
	}
	return nil
}

// FileSource is a Source backed by an inventory file.
type FileSource struct {
	path   string
	loader *Loader
}

// NewFileSource creates a Source that loads path on every call.
func NewFileSource(path string, loader *Loader) *FileSource {
	return &FileSource{path: path, loader: loader}
}

// Devices loads the inventory file.
func (s *FileSource) Devices(ctx context.Context) ([]models.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.loader.Load(s.path)
}
