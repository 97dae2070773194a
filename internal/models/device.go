package models

// Known device type tags. Any other value is treated as an opaque vendor string.
const (
	DeviceTypeCiscoIOS     = "cisco_ios"
	DeviceTypeJuniperJunos = "juniper_junos"
	DeviceTypeAristaEOS    = "arista_eos"
)

// Device describes one managed network device from the inventory.
type Device struct {
	Name       string `json:"name" yaml:"name"`
	Host       string `json:"host" yaml:"host"`
	DeviceType string `json:"device_type" yaml:"device_type"`
	Site       string `json:"site,omitempty" yaml:"site"`
	Port       int    `json:"port,omitempty" yaml:"port"`
	Username   string `json:"-" yaml:"username"`
	Password   string `json:"-" yaml:"password"`
	Secret     string `json:"-" yaml:"secret"`
}

// Summary returns the name/host pair used in fleet reports.
func (d Device) Summary() DeviceSummary {
	return DeviceSummary{Name: d.Name, Host: d.Host}
}

// DeviceSummary is the reduced device view stored in fleet results.
type DeviceSummary struct {
	Name string `json:"name"`
	Host string `json:"host"`
}
