package protocol

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/nao1215/powerdisco/internal/model"
)

// PowercomPath is the vendor resource describing the power distribution
// service of the device.
const PowercomPath = "/etn/v1/comm/services/powerdistributions1"

// supportedPowercomDevices are the device types accepted by the powercom driver.
var supportedPowercomDevices = []string{"ups", "ats"}

var errUnsupportedDevice = errors.New("not supported device")

// PowercomScanner detects the vendor REST API served over HTTPS.
type PowercomScanner struct {
	fetch *httpFetcher
}

// NewPowercomScanner creates a scanner for the nut_powercom protocol.
func NewPowercomScanner(opts ...HTTPScannerOption) *PowercomScanner {
	return &PowercomScanner{
		fetch: newHTTPFetcher(opts...),
	}
}

// Protocol returns the protocol name.
func (s *PowercomScanner) Protocol() string {
	return model.ProtocolPowercom
}

// DefaultPort returns the default HTTPS port.
func (s *PowercomScanner) DefaultPort() uint16 {
	return 443
}

// powerDistribution is the part of the vendor document we look at.
// The service answers JSON, which yaml.v3 decodes as a YAML flow mapping.
type powerDistribution struct {
	DeviceType string `yaml:"device-type"`
}

// Scan fetches the power distribution resource and accepts UPS and ATS devices.
func (s *PowercomScanner) Scan(ctx context.Context, address string, port uint16) (model.Availability, error) {
	body, err := s.fetch.get(ctx, baseURL("https", address, port)+PowercomPath)
	if err != nil {
		return model.AvailabilityNo, err
	}

	var doc powerDistribution
	if err := yaml.Unmarshal(body, &doc); err != nil {
		return model.AvailabilityNo, fmt.Errorf("%w (%v)", errUnsupportedDevice, err)
	}

	// A Caser is stateful and scanners are shared between workers.
	kind := strings.TrimSpace(doc.DeviceType)
	if !slices.Contains(supportedPowercomDevices, cases.Fold().String(kind)) {
		return model.AvailabilityNo, fmt.Errorf("%w (%s)", errUnsupportedDevice, kind)
	}
	return model.AvailabilityYes, nil
}
