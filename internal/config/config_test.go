package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/powerdisco/internal/model"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default pool is 5 to 20 workers", func(t *testing.T) {
		t.Parallel()
		if cfg.PoolMinWorkers != 5 || cfg.PoolMaxWorkers != 20 {
			t.Errorf("expected pool 5..20, got %d..%d", cfg.PoolMinWorkers, cfg.PoolMaxWorkers)
		}
	})

	t.Run("default WatchdogInterval is 1 second", func(t *testing.T) {
		t.Parallel()
		if cfg.WatchdogInterval != time.Second {
			t.Errorf("expected WatchdogInterval to be 1s, got %v", cfg.WatchdogInterval)
		}
	})

	t.Run("default StuckTimeout is 10 minutes", func(t *testing.T) {
		t.Parallel()
		if cfg.StuckTimeout != 10*time.Minute {
			t.Errorf("expected StuckTimeout to be 10m, got %v", cfg.StuckTimeout)
		}
	})

	t.Run("default NUTPath is /lib/nut", func(t *testing.T) {
		t.Parallel()
		if cfg.NUTPath != "/lib/nut" {
			t.Errorf("expected NUTPath to be /lib/nut, got %q", cfg.NUTPath)
		}
	})

	t.Run("default Endpoint is in the XDG data dir", func(t *testing.T) {
		t.Parallel()
		if !strings.HasPrefix(cfg.Endpoint, XDGDataDir()) {
			t.Errorf("expected Endpoint under %q, got %q", XDGDataDir(), cfg.Endpoint)
		}
		if filepath.Base(cfg.Endpoint) != DatabaseFileName {
			t.Errorf("expected Endpoint file %q, got %q", DatabaseFileName, cfg.Endpoint)
		}
	})

	t.Run("default File is empty but usable", func(t *testing.T) {
		t.Parallel()
		if cfg.File == nil || cfg.File.Credentials == nil {
			t.Fatal("expected initialized File")
		}
	})

	t.Run("defaults are valid", func(t *testing.T) {
		t.Parallel()
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected default config to be valid, got %v", err)
		}
	})
}

// TestConfigValidate tests the validation rules.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{"zero min workers", func(c *Config) { c.PoolMinWorkers = 0 }, ErrInvalidPoolSize},
		{"negative min workers", func(c *Config) { c.PoolMinWorkers = -1 }, ErrInvalidPoolSize},
		{"zero watchdog interval", func(c *Config) { c.WatchdogInterval = 0 }, ErrInvalidWatchdogInterval},
		{"negative stuck timeout", func(c *Config) { c.StuckTimeout = -time.Second }, ErrInvalidStuckTimeout},
		{"zero probe timeout", func(c *Config) { c.ProbeTimeout = 0 }, ErrInvalidTimeout},
		{"zero ping timeout", func(c *Config) { c.PingTimeout = 0 }, ErrInvalidTimeout},
		{"empty endpoint", func(c *Config) { c.Endpoint = "" }, ErrEmptyEndpoint},
		{"both report formats", func(c *Config) { c.JSONReport, c.MarkdownReport = true, true }, ErrConflictingReportFormats},
		{"invalid credential", func(c *Config) {
			c.File.Credentials["bad"] = Credential{Type: CredentialSNMPv1}
		}, ErrInvalidCredential},
		{"zero stuck timeout selects default", func(c *Config) { c.StuckTimeout = 0 }, nil},
		{"max below min is accepted", func(c *Config) { c.PoolMaxWorkers = 1 }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	t.Run("credential error names the document", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.File.Credentials["lab-v3"] = Credential{Type: CredentialSNMPv3}

		var credErr *CredentialError
		if err := cfg.Validate(); !errors.As(err, &credErr) {
			t.Fatalf("expected CredentialError, got %v", err)
		}
		if credErr.ID != "lab-v3" {
			t.Errorf("expected id lab-v3, got %q", credErr.ID)
		}
	})
}

// TestConfigPoolSize tests that max workers is raised to min workers.
func TestConfigPoolSize(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.PoolMinWorkers, cfg.PoolMaxWorkers = 8, 3

	minW, maxW, raised := cfg.PoolSize()
	if minW != 8 || maxW != 8 || !raised {
		t.Errorf("expected 8,8,true got %d,%d,%v", minW, maxW, raised)
	}

	cfg.PoolMaxWorkers = 12
	minW, maxW, raised = cfg.PoolSize()
	if minW != 8 || maxW != 12 || raised {
		t.Errorf("expected 8,12,false got %d,%d,%v", minW, maxW, raised)
	}
}

// TestCredentialValidate tests credential document rules.
func TestCredentialValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cred    Credential
		wantErr bool
	}{
		{"snmpv1 with community", Credential{Type: CredentialSNMPv1, Community: "public"}, false},
		{"snmpv1 without community", Credential{Type: CredentialSNMPv1}, true},
		{"snmpv3 authPriv", Credential{
			Type: CredentialSNMPv3, SecurityName: "monitor", SecurityLevel: SecurityAuthPriv,
			AuthProtocol: "sha", AuthPassword: "a", PrivProtocol: "aes", PrivPassword: "p",
		}, false},
		{"snmpv3 without name", Credential{Type: CredentialSNMPv3}, true},
		{"snmpv3 bad level", Credential{Type: CredentialSNMPv3, SecurityName: "m", SecurityLevel: "paranoid"}, true},
		{"snmpv3 bad auth protocol", Credential{Type: CredentialSNMPv3, SecurityName: "m", AuthProtocol: "CRC32"}, true},
		{"snmpv3 bad priv protocol", Credential{Type: CredentialSNMPv3, SecurityName: "m", PrivProtocol: "ROT13"}, true},
		{"user_password", Credential{Type: CredentialUserPassword, Username: "admin", Password: "x"}, false},
		{"user_password without user", Credential{Type: CredentialUserPassword}, true},
		{"unknown type", Credential{Type: "kerberos"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cred.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidCredential) {
				t.Errorf("expected ErrInvalidCredential, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

// TestFileCredential tests credential lookup by id.
func TestFileCredential(t *testing.T) {
	t.Parallel()

	cf := NewFile()
	cf.Credentials["ro"] = Credential{Type: CredentialSNMPv1, Community: "public"}

	t.Run("known id", func(t *testing.T) {
		t.Parallel()
		cred, err := cf.Credential("ro")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cred.Community != "public" {
			t.Errorf("expected community public, got %q", cred.Community)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()
		if _, err := cf.Credential("rw"); !errors.Is(err, ErrCredentialNotFound) {
			t.Errorf("expected ErrCredentialNotFound, got %v", err)
		}
	})

	t.Run("nil file", func(t *testing.T) {
		t.Parallel()
		var nilFile *File
		if _, err := nilFile.Credential("ro"); !errors.Is(err, ErrCredentialNotFound) {
			t.Errorf("expected ErrCredentialNotFound, got %v", err)
		}
	})
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.powerdisco")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".powerdisco")
		content := `discovery:
  type: multi
  ranges:
    - 10.130.32.0/28
  credentials: [lab-v3, ro]
  links:
    - src: rackcontroller-0
      type: 1
  parent: datacenter-3
  device_centric: true
credentials:
  lab-v3:
    type: snmpv3
    security_name: monitor
    security_level: authPriv
    auth_protocol: SHA
    auth_password: authpass
    priv_protocol: AES
    priv_password: privpass
  ro:
    type: snmpv1
    community: public
pool:
  min_workers: 2
  max_workers: 40
watchdog:
  interval: 500ms
  stuck_timeout: 3m
nut:
  path: /usr/lib/nut
  driver_timeout: 90s
endpoint: /var/lib/powerdisco/assets.db
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cf, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cf.Discovery == nil || cf.Discovery.Kind != model.KindNamedRanges {
			t.Fatalf("expected multi discovery, got %+v", cf.Discovery)
		}
		if len(cf.Discovery.Links) != 1 || cf.Discovery.Links[0].Source != "rackcontroller-0" {
			t.Errorf("unexpected links: %+v", cf.Discovery.Links)
		}
		if !cf.Discovery.DeviceCentric {
			t.Error("expected device_centric to be true")
		}
		if cf.Credentials["lab-v3"].PrivPassword != "privpass" {
			t.Error("expected lab-v3 priv password")
		}

		cfg := NewConfig()
		cf.Apply(cfg)

		if cfg.PoolMinWorkers != 2 || cfg.PoolMaxWorkers != 40 {
			t.Errorf("expected pool 2..40, got %d..%d", cfg.PoolMinWorkers, cfg.PoolMaxWorkers)
		}
		if cfg.WatchdogInterval != 500*time.Millisecond {
			t.Errorf("expected interval 500ms, got %v", cfg.WatchdogInterval)
		}
		if cfg.StuckTimeout != 3*time.Minute {
			t.Errorf("expected stuck timeout 3m, got %v", cfg.StuckTimeout)
		}
		if cfg.NUTPath != "/usr/lib/nut" || cfg.DriverTimeout != 90*time.Second {
			t.Errorf("unexpected nut settings: %q %v", cfg.NUTPath, cfg.DriverTimeout)
		}
		if cfg.SNMPTimeout != DefaultSNMPTimeout {
			t.Errorf("expected untouched SNMP timeout, got %v", cfg.SNMPTimeout)
		}
		if cfg.Endpoint != "/var/lib/powerdisco/assets.db" {
			t.Errorf("unexpected endpoint %q", cfg.Endpoint)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected valid config, got %v", err)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".powerdisco")
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("initializes nil Credentials map", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".powerdisco")
		if err := os.WriteFile(configPath, []byte("endpoint: /tmp/a.db\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cf, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cf.Credentials == nil {
			t.Error("expected Credentials map to be initialized")
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Run("returns explicit path if exists", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("pool: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})

	t.Run("finds config in current directory", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte("pool: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		result := FindConfigFile("")
		if filepath.Base(result) != DefaultConfigFile {
			t.Errorf("expected %s to be found, got %q", DefaultConfigFile, result)
		}
	})
}

// TestApplyEnv tests environment overrides.
func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		EnvEndpoint:     "/srv/assets.db",
		EnvNUTPath:      "/opt/nut/bin",
		EnvMaxWorkers:   "64",
		EnvStuckTimeout: "90s",
		EnvListen:       ":9000",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := NewConfig()
	if err := cfg.applyEnv(lookup); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Endpoint != "/srv/assets.db" || cfg.NUTPath != "/opt/nut/bin" || cfg.ListenAddress != ":9000" {
		t.Errorf("string overrides not applied: %+v", cfg)
	}
	if cfg.PoolMaxWorkers != 64 {
		t.Errorf("expected 64 max workers, got %d", cfg.PoolMaxWorkers)
	}
	if cfg.StuckTimeout != 90*time.Second {
		t.Errorf("expected 90s stuck timeout, got %v", cfg.StuckTimeout)
	}
	if cfg.MIBDatabase != DefaultMIBDatabase {
		t.Errorf("expected untouched MIB database, got %q", cfg.MIBDatabase)
	}

	t.Run("bad integer", func(t *testing.T) {
		t.Parallel()
		bad := func(k string) (string, bool) {
			if k == EnvMaxWorkers {
				return "many", true
			}
			return "", false
		}
		if err := NewConfig().applyEnv(bad); err == nil {
			t.Error("expected error for non-numeric worker count")
		}
	})
}

// TestLoadEnv tests dotenv loading.
func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("POWERDISCO_TEST_DOTENV=loaded\n"), 0600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("POWERDISCO_TEST_DOTENV") })

	if err := LoadEnv(filepath.Join(dir, "missing.env"), envFile); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("POWERDISCO_TEST_DOTENV"); got != "loaded" {
		t.Errorf("expected loaded, got %q", got)
	}
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if XDGDataDir() == "" {
		t.Error("expected non-empty XDG data dir")
	}
	if XDGConfigDir() == "" {
		t.Error("expected non-empty XDG config dir")
	}
}
