package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by ApplyEnv.
const (
	EnvEndpoint     = "POWERDISCO_ENDPOINT"
	EnvNUTPath      = "POWERDISCO_NUT_PATH"
	EnvMIBDatabase  = "POWERDISCO_MIB_DATABASE"
	EnvMaxWorkers   = "POWERDISCO_MAX_WORKERS"
	EnvStuckTimeout = "POWERDISCO_STUCK_TIMEOUT"
	EnvListen       = "POWERDISCO_LISTEN"
)

// LoadEnv loads KEY=VALUE pairs from the given dotenv files into the process
// environment. Variables that are already set win. Missing files are ignored.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg with POWERDISCO_* environment variables.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvEndpoint); ok && v != "" {
		c.Endpoint = v
	}
	if v, ok := lookup(EnvNUTPath); ok && v != "" {
		c.NUTPath = v
	}
	if v, ok := lookup(EnvMIBDatabase); ok && v != "" {
		c.MIBDatabase = v
	}
	if v, ok := lookup(EnvListen); ok && v != "" {
		c.ListenAddress = v
	}
	if v, ok := lookup(EnvMaxWorkers); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxWorkers, err)
		}
		c.PoolMaxWorkers = n
	}
	if v, ok := lookup(EnvStuckTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvStuckTimeout, err)
		}
		c.StuckTimeout = d
	}
	return nil
}
