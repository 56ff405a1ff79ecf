package config

import (
	"time"

	"github.com/nao1215/powerdisco/internal/model"
)

// PoolSection holds worker pool settings of the configuration file.
type PoolSection struct {
	MinWorkers int `yaml:"min_workers,omitempty"`
	MaxWorkers int `yaml:"max_workers,omitempty"`
}

// WatchdogSection holds watchdog settings of the configuration file.
type WatchdogSection struct {
	Interval     time.Duration `yaml:"interval,omitempty"`
	StuckTimeout time.Duration `yaml:"stuck_timeout,omitempty"`
}

// NUTSection holds NUT driver settings of the configuration file.
type NUTSection struct {
	Path          string        `yaml:"path,omitempty"`
	MIBDatabase   string        `yaml:"mib_database,omitempty"`
	DriverTimeout time.Duration `yaml:"driver_timeout,omitempty"`
	SNMPTimeout   time.Duration `yaml:"snmp_timeout,omitempty"`
}

// File represents the structure of the .powerdisco configuration file.
type File struct {
	// Discovery is the campaign started by "powerdisco scan" when no
	// addresses are given on the command line.
	Discovery *model.DiscoveryRequest `yaml:"discovery,omitempty"`

	// Credentials maps credential ids to credential documents.
	Credentials map[string]Credential `yaml:"credentials,omitempty"`

	Pool     PoolSection     `yaml:"pool,omitempty"`
	Watchdog WatchdogSection `yaml:"watchdog,omitempty"`
	NUT      NUTSection      `yaml:"nut,omitempty"`

	// Endpoint overrides the asset registry location.
	Endpoint string `yaml:"endpoint,omitempty"`

	// Listen overrides the bind address of the HTTP control API.
	Listen string `yaml:"listen,omitempty"`
}

// NewFile returns an empty configuration file.
func NewFile() *File {
	return &File{Credentials: make(map[string]Credential)}
}

// Apply copies every value set in the file onto cfg.
// Zero values leave the corresponding setting untouched.
func (cf *File) Apply(cfg *Config) {
	if cf == nil {
		return
	}

	if cf.Pool.MinWorkers != 0 {
		cfg.PoolMinWorkers = cf.Pool.MinWorkers
	}
	if cf.Pool.MaxWorkers != 0 {
		cfg.PoolMaxWorkers = cf.Pool.MaxWorkers
	}
	if cf.Watchdog.Interval != 0 {
		cfg.WatchdogInterval = cf.Watchdog.Interval
	}
	if cf.Watchdog.StuckTimeout != 0 {
		cfg.StuckTimeout = cf.Watchdog.StuckTimeout
	}
	if cf.NUT.Path != "" {
		cfg.NUTPath = cf.NUT.Path
	}
	if cf.NUT.MIBDatabase != "" {
		cfg.MIBDatabase = cf.NUT.MIBDatabase
	}
	if cf.NUT.DriverTimeout != 0 {
		cfg.DriverTimeout = cf.NUT.DriverTimeout
	}
	if cf.NUT.SNMPTimeout != 0 {
		cfg.SNMPTimeout = cf.NUT.SNMPTimeout
	}
	if cf.Endpoint != "" {
		cfg.Endpoint = cf.Endpoint
	}
	if cf.Listen != "" {
		cfg.ListenAddress = cf.Listen
	}
	cfg.File = cf
}
