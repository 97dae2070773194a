package inventory

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"netbackup/internal/models"
)

const deviceBlockType = "device"

// ParseHCL parses an HCL inventory file and returns its device blocks in
// file order. A device block that cannot be decoded fails the whole file.
func (l *Loader) ParseHCL(path string) ([]models.Device, Defaults, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)

	if diags.HasErrors() {
		return nil, Defaults{}, fmt.Errorf("failed to parse HCL file %s: %s", path, diags.Error())
	}

	if file == nil || file.Body == nil {
		return nil, Defaults{}, fmt.Errorf("parsed HCL file is empty or invalid: %s", path)
	}

	// First, decode the top-level blocks
	var cfg hclFile
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, Defaults{}, fmt.Errorf("failed to decode HCL body %s: %s", path, diags.Error())
	}

	var defaults Defaults
	if cfg.Defaults != nil {
		defaults = *cfg.Defaults
	}

	l.logger.Debug("Decoding %d %s blocks from %s", len(cfg.Devices), deviceBlockType, path)
	devices := make([]models.Device, 0, len(cfg.Devices))
	for _, block := range cfg.Devices {
		var attrs hclDevice
		diags = gohcl.DecodeBody(block.Body, nil, &attrs)
		if diags.HasErrors() {
			return nil, Defaults{}, fmt.Errorf("failed to decode device '%s': %s", block.Name, diags.Error())
		}

		devices = append(devices, models.Device{
			Name:       block.Name,
			Host:       attrs.Host,
			DeviceType: attrs.DeviceType,
			Site:       attrs.Site,
			Port:       attrs.Port,
			Username:   attrs.Username,
			Password:   attrs.Password,
			Secret:     attrs.Secret,
		})
	}

	return devices, defaults, nil
}
