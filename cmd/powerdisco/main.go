// Package main provides the entry point for the powerdisco CLI.
//
// powerdisco discovers power devices (UPS, ePDU, STS and their sensors) on
// a network and registers them as assets.
//
// Usage:
//
//	powerdisco scan 10.0.0.5 10.0.0.6
//	powerdisco scan --range 10.0.0.0/24
//	powerdisco serve
//
// See --help for all available options.
package main

func main() {
	Execute()
}
