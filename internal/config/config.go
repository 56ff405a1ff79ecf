package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultPoolMinWorkers is the number of workers started with every
	// campaign pool. Idle workers above this floor are not started.
	DefaultPoolMinWorkers = 5

	// DefaultPoolMaxWorkers bounds the number of hosts probed at the same
	// time. Each worker holds at most one HTTP connection or UDP socket, so
	// the value is mostly limited by the patience of the scanned network.
	DefaultPoolMaxWorkers = 20

	// DefaultWatchdogInterval is the cadence at which the watchdog reads the
	// pool counters to detect the end of a campaign.
	DefaultWatchdogInterval = 1 * time.Second

	// DefaultStuckTimeout is how long the pending+active task count may stay
	// unchanged before the campaign is declared stuck and force-terminated.
	// A NUT driver scanning a large daisy chain can take minutes, so the
	// value is generous.
	DefaultStuckTimeout = 10 * time.Minute

	// DefaultProbeTimeout bounds each HTTP(S) request of the protocol probes.
	DefaultProbeTimeout = 5 * time.Second

	// DefaultPingTimeout bounds the host availability check.
	DefaultPingTimeout = 2 * time.Second

	// DefaultDriverTimeout bounds one run of a NUT driver.
	DefaultDriverTimeout = 2 * time.Minute

	// DefaultSNMPTimeout is passed to the SNMP driver as its per-request timeout.
	DefaultSNMPTimeout = 5 * time.Second

	// DefaultNUTPath is where NUT installs its driver executables.
	DefaultNUTPath = "/lib/nut"

	// DefaultMIBDatabase is the MIB directory handed to the SNMP driver.
	DefaultMIBDatabase = "/usr/share/snmp/mibs"

	// DefaultListenAddress is the bind address of the HTTP control API.
	DefaultListenAddress = "127.0.0.1:8088"

	// DefaultCreatedBy is recorded on every asset created by discovery.
	DefaultCreatedBy = "powerdisco-asset-creation"

	// AppName is the application name used for XDG directory paths.
	AppName = "powerdisco"

	// DatabaseFileName is the registry file created in the data directory.
	DatabaseFileName = "powerdisco.db"
)

// Config holds all configuration options of powerdisco.
// It is built from defaults, the configuration file, the environment and
// CLI flags, then handed explicitly to every component.
type Config struct {
	// PoolMinWorkers is the number of workers started with a campaign pool.
	PoolMinWorkers int

	// PoolMaxWorkers is the maximum number of concurrent scan tasks.
	// A value below PoolMinWorkers is raised to PoolMinWorkers.
	PoolMaxWorkers int

	// WatchdogInterval is the polling period of the campaign watchdog.
	WatchdogInterval time.Duration

	// StuckTimeout is how long pool counters may stay unchanged before the
	// campaign is force-terminated. Zero selects DefaultStuckTimeout.
	StuckTimeout time.Duration

	// ProbeTimeout bounds each HTTP(S) request of the protocol probes.
	ProbeTimeout time.Duration

	// PingTimeout bounds the host availability check.
	PingTimeout time.Duration

	// Endpoint is the location of the asset registry. For the sqlite
	// registry this is the database file path.
	Endpoint string

	// CreatedBy is recorded as the creator of every asset.
	CreatedBy string

	// NUTPath is the directory holding the NUT driver executables.
	NUTPath string

	// MIBDatabase is the MIB directory used by the SNMP driver.
	MIBDatabase string

	// DriverTimeout bounds one NUT driver run.
	DriverTimeout time.Duration

	// SNMPTimeout is the per-request timeout handed to the SNMP driver.
	SNMPTimeout time.Duration

	// ListenAddress is the bind address of the HTTP control API.
	ListenAddress string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the path of the configuration file, if any.
	ConfigFilePath string

	// File holds the content of the configuration file.
	File *File

	// JSONReport selects JSON campaign reports.
	JSONReport bool

	// MarkdownReport selects Markdown campaign reports.
	MarkdownReport bool

	// ReportFile is the output path of the campaign report; empty means stdout.
	ReportFile string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		PoolMinWorkers:   DefaultPoolMinWorkers,
		PoolMaxWorkers:   DefaultPoolMaxWorkers,
		WatchdogInterval: DefaultWatchdogInterval,
		StuckTimeout:     DefaultStuckTimeout,
		ProbeTimeout:     DefaultProbeTimeout,
		PingTimeout:      DefaultPingTimeout,
		Endpoint:         filepath.Join(XDGDataDir(), DatabaseFileName),
		CreatedBy:        DefaultCreatedBy,
		NUTPath:          DefaultNUTPath,
		MIBDatabase:      DefaultMIBDatabase,
		DriverTimeout:    DefaultDriverTimeout,
		SNMPTimeout:      DefaultSNMPTimeout,
		ListenAddress:    DefaultListenAddress,
		File:             NewFile(),
	}
}

// XDGDataDir returns the XDG data directory for powerdisco.
// On Linux: ~/.local/share/powerdisco
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for powerdisco.
// On Linux: ~/.config/powerdisco
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// PoolSize returns the worker bounds with max raised to min when misconfigured.
// The second return value reports whether max was raised.
func (c *Config) PoolSize() (minWorkers, maxWorkers int, raised bool) {
	minWorkers, maxWorkers = c.PoolMinWorkers, c.PoolMaxWorkers
	if maxWorkers < minWorkers {
		return minWorkers, minWorkers, true
	}
	return minWorkers, maxWorkers, false
}

// Validate checks if the configuration is valid.
// It returns the first sentinel error found.
func (c *Config) Validate() error {
	if c.PoolMinWorkers <= 0 {
		return ErrInvalidPoolSize
	}

	if c.WatchdogInterval <= 0 {
		return ErrInvalidWatchdogInterval
	}

	if c.StuckTimeout < 0 {
		return ErrInvalidStuckTimeout
	}

	if c.ProbeTimeout <= 0 || c.PingTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Endpoint == "" {
		return ErrEmptyEndpoint
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.File != nil {
		for id, cred := range c.File.Credentials {
			if err := cred.Validate(); err != nil {
				return &CredentialError{ID: id, Err: err}
			}
		}
	}

	return nil
}
