// Package config provides configuration structures and utilities for powerdisco.
// It defines the worker pool and watchdog settings of discovery campaigns,
// the NUT driver environment, credential documents and the location of the
// asset registry. Values are layered as defaults, configuration file,
// environment and finally CLI flags.
package config
