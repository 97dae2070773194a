package inventory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"netbackup/internal/models"
)

// ParseYAML reads a YAML inventory with a top-level devices list.
func (l *Loader) ParseYAML(path string) ([]models.Device, Defaults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Defaults{}, fmt.Errorf("failed to read inventory %s: %w", path, err)
	}

	var file yamlFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, Defaults{}, fmt.Errorf("failed to parse YAML inventory %s: %w", path, err)
	}
	if file.Devices == nil {
		return nil, Defaults{}, fmt.Errorf("inventory %s has no devices list", path)
	}

	return file.Devices, file.Defaults, nil
}
