package model

import (
	"fmt"
	"strings"
)

// Protocol identifiers in probing priority order.
const (
	// ProtocolPowercom is the vendor REST API served over HTTPS.
	ProtocolPowercom = "nut_powercom"

	// ProtocolXMLPDC is the XML protocol of network management cards.
	ProtocolXMLPDC = "nut_xml_pdc"

	// ProtocolSNMP is SNMP over UDP.
	ProtocolSNMP = "nut_snmp"
)

// Availability is the confidence that a management protocol itself, not
// just its port, is present on a host.
type Availability int

const (
	// AvailabilityNo means the protocol was not identified.
	AvailabilityNo Availability = iota
	// AvailabilityMaybe means the port answered but the protocol cannot be confirmed.
	AvailabilityMaybe
	// AvailabilityYes means the protocol was identified.
	AvailabilityYes
)

// String returns the wire name of the availability.
func (a Availability) String() string {
	switch a {
	case AvailabilityYes:
		return "yes"
	case AvailabilityMaybe:
		return "maybe"
	default:
		return "no"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Availability) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Availability) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "yes":
		*a = AvailabilityYes
	case "maybe":
		*a = AvailabilityMaybe
	case "no", "":
		*a = AvailabilityNo
	default:
		return fmt.Errorf("unknown availability %q", string(text))
	}
	return nil
}

// ProtocolCandidate is the result of testing one protocol against a host.
type ProtocolCandidate struct {
	// Protocol is one of the Protocol* identifiers.
	Protocol string `json:"protocol"`

	// Port is the port that was probed.
	Port uint16 `json:"port"`

	// Reachable reports whether the port or service responded.
	Reachable bool `json:"reachable"`

	// Available is the confidence that the protocol itself is present.
	Available Availability `json:"available"`
}

// NewProtocolCandidate returns an unreachable candidate, the default
// outcome of every probe.
func NewProtocolCandidate(protocol string, port uint16) ProtocolCandidate {
	return ProtocolCandidate{
		Protocol:  protocol,
		Port:      port,
		Reachable: false,
		Available: AvailabilityNo,
	}
}

// AssetQuery asks an asset finder for the devices behind one protocol of a
// host, authenticated with one credential.
type AssetQuery struct {
	Address    string `json:"address"`
	Protocol   string `json:"protocol"`
	Port       uint16 `json:"port"`
	Credential string `json:"credential,omitempty"`
}
