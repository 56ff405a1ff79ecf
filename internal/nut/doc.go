// Package nut enumerates the devices behind a management protocol by running
// the Network UPS Tools drivers in discovery mode and mapping their dump to
// discovered assets.
//
// One driver exists per protocol:
//
//	nut_snmp      snmp-ups
//	nut_xml_pdc   netxml-ups
//	nut_powercom  etn-nut-powerconnect
//
// Drivers are looked up in the configured NUT directory and run with a
// private, temporary NUT_STATEPATH. Credentials are passed as driver
// options (and SU_VAR_* variables for snmp-ups); loggers must mask them.
package nut
