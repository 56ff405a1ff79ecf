package model

import (
	"fmt"
	"strings"
)

// CampaignState is the lifecycle state of a discovery campaign.
type CampaignState int

const (
	// StateUnknown is the state before the first campaign.
	StateUnknown CampaignState = iota

	// StateInProgress means tasks are queued or running.
	StateInProgress

	// StateTerminated means the pool has drained.
	StateTerminated

	// StateCancelledByUser means Stop was called; the watchdog moves the
	// campaign to StateTerminated once in-flight tasks have finished.
	StateCancelledByUser
)

var stateNames = map[CampaignState]string{
	StateUnknown:         "unknown",
	StateInProgress:      "in_progress",
	StateTerminated:      "terminated",
	StateCancelledByUser: "cancelled_by_user",
}

// String returns the wire name of the state.
func (s CampaignState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (s CampaignState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *CampaignState) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))
	for state, n := range stateNames {
		if n == name {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown campaign state %q", string(text))
}

// Subtype is a device subtype counted by the campaign status.
type Subtype int

const (
	// SubtypeUPS is an uninterruptible power supply.
	SubtypeUPS Subtype = iota
	// SubtypeEPDU is an enclosure power distribution unit.
	SubtypeEPDU
	// SubtypeSTS is a static transfer switch.
	SubtypeSTS
	// SubtypeSensor is an environmental sensor attached to a device.
	SubtypeSensor

	// NumSubtypes is the number of known subtypes.
	NumSubtypes
)

var subtypeNames = [...]string{
	SubtypeUPS:    "ups",
	SubtypeEPDU:   "epdu",
	SubtypeSTS:    "sts",
	SubtypeSensor: "sensor",
}

// Fails to compile when a subtype is added without a name.
var _ = [1]struct{}{}[int(NumSubtypes)-len(subtypeNames)]

// String returns the registry name of the subtype.
func (s Subtype) String() string {
	if s < 0 || s >= NumSubtypes {
		return "unknown"
	}
	return subtypeNames[s]
}

// ParseSubtype maps a registry subtype name to a Subtype.
// The second return value is false for names that are not counted.
func ParseSubtype(name string) (Subtype, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range subtypeNames {
		if n == name {
			return Subtype(i), true
		}
	}
	return 0, false
}

// Counters holds one discovery counter per subtype.
type Counters [NumSubtypes]uint32

// Add increments the counter of s.
func (c *Counters) Add(s Subtype) {
	c[s]++
}

// Total returns the sum of all counters.
func (c Counters) Total() uint32 {
	var total uint32
	for _, n := range c {
		total += n
	}
	return total
}

// CampaignStatus is the query surface of a campaign.
type CampaignStatus struct {
	State      CampaignState `json:"state"`
	UPS        uint32        `json:"ups"`
	EPDU       uint32        `json:"epdu"`
	STS        uint32        `json:"sts"`
	Sensors    uint32        `json:"sensors"`
	Discovered uint32        `json:"discovered"`
	Progress   int           `json:"progress"`
}

// NewCampaignStatus builds a status from its state, counters and progress.
// Discovered is always derived from the counters.
func NewCampaignStatus(state CampaignState, counters Counters, progress int) CampaignStatus {
	return CampaignStatus{
		State:      state,
		UPS:        counters[SubtypeUPS],
		EPDU:       counters[SubtypeEPDU],
		STS:        counters[SubtypeSTS],
		Sensors:    counters[SubtypeSensor],
		Discovered: counters.Total(),
		Progress:   progress,
	}
}

// Progress computes the integer completion percentage of a campaign.
// It rounds half up, clamps to [0,100] and returns 100 when total is 0.
func Progress(total, remaining uint32) int {
	if total == 0 {
		return 100
	}
	if remaining > total {
		remaining = total
	}
	done := uint64(total - remaining)
	p := int((100*done + uint64(total)/2) / uint64(total))
	return min(max(p, 0), 100)
}
