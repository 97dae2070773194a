package inventory

import (
	"github.com/hashicorp/hcl/v2"

	"netbackup/internal/models"
)

// hclDevice represents the attributes of a device block in HCL.
type hclDevice struct {
	Host       string `hcl:"host"`
	DeviceType string `hcl:"device_type,optional"`
	Site       string `hcl:"site,optional"`
	Port       int    `hcl:"port,optional"`
	Username   string `hcl:"username,optional"`
	Password   string `hcl:"password,optional"`
	Secret     string `hcl:"secret,optional"`
}

// DeviceBlock represents a single labelled device block in HCL.
type DeviceBlock struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

// hclFile represents the top-level structure of an HCL inventory.
type hclFile struct {
	Defaults *Defaults      `hcl:"defaults,block"`
	Devices  []*DeviceBlock `hcl:"device,block"`
	Remain   hcl.Body       `hcl:",remain"`
}

// yamlFile is the layout of a YAML inventory: an optional defaults map and
// the ordered device list.
type yamlFile struct {
	Defaults Defaults        `yaml:"defaults"`
	Devices  []models.Device `yaml:"devices"`
}

// Defaults are inventory-wide values for fields a device leaves empty.
type Defaults struct {
	DeviceType string `yaml:"device_type" hcl:"device_type,optional"`
	Site       string `yaml:"site" hcl:"site,optional"`
	Port       int    `yaml:"port" hcl:"port,optional"`
	Username   string `yaml:"username" hcl:"username,optional"`
	Password   string `yaml:"password" hcl:"password,optional"`
}
