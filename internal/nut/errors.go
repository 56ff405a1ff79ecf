package nut

import "errors"

var (
	// ErrDriverNotFound is returned when the driver executable is missing or
	// not executable.
	ErrDriverNotFound = errors.New("driver executable not found")

	// ErrUnsupportedProtocol is returned for a protocol without a NUT driver.
	ErrUnsupportedProtocol = errors.New("protocol is not supported")

	// ErrUnsupportedCredential is returned when a credential document does
	// not fit the protocol (e.g. a community for the REST driver).
	ErrUnsupportedCredential = errors.New("credential type not supported by protocol")

	// ErrInvalidCredentials is returned when the device rejected the credential.
	ErrInvalidCredentials = errors.New("Invalid credentials.") //nolint:staticcheck // Message shown to operators as is

	// ErrConnectionFailed is returned when the driver could not reach the device.
	ErrConnectionFailed = errors.New("Connection failed.") //nolint:staticcheck // Message shown to operators as is

	// ErrDriverFailed wraps any other driver failure.
	ErrDriverFailed = errors.New("driver failed")
)
