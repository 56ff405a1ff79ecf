// Package log provides slog loggers that mask credential material.
//
// Discovery handles SNMP communities, SNMPv3 passphrases and REST
// username/password pairs, and driver command lines carry them as
// "-x community=..." options. SecureHandler masks them in every record:
//   - attributes whose key names a secret (password, community, auth...)
//   - string values that look like secrets (bearer tokens, private keys)
//   - []string driver argument lists, option by option
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("running driver", "args", []string{"-x", "community=public"})
//	// args=[-x community=***REDACTED***]
package log
