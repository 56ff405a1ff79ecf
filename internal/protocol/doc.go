// Package protocol identifies which power-device management protocols a host
// exposes.
//
// # Architecture
//
// Each management protocol is implemented as a Scanner. The Prober runs a
// host availability check and then every scanner in a fixed priority order:
//
//   - nut_powercom (port 443): vendor REST API over HTTPS
//   - nut_xml_pdc (port 80): product descriptor XML of network management cards
//   - nut_snmp (port 161): UDP reachability heuristic
//
// Every protocol appears exactly once in the result. A failing scanner leaves
// its candidate unreachable and does not prevent the next one from running.
//
// SNMP is connectionless, so a successful SNMP probe only proves that writes
// to the port did not bounce. It reports AvailabilityMaybe, never
// AvailabilityYes.
//
// # Testing
//
// The reserved address "__fake__" returns a canned result without touching
// the network. Integration tests of the scan orchestrator rely on it.
package protocol
