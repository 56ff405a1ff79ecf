package nut

import (
	"bufio"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/powerdisco/internal/model"
)

var (
	dumpKey       = regexp.MustCompile(`^[a-z0-9_][a-z0-9_.-]*$`)
	chainKey      = regexp.MustCompile(`^device\.([1-9][0-9]*)\.(.+)$`)
	ambientActive = regexp.MustCompile(`^ambient\.([1-9][0-9]*)\.present$`)
)

// deviceSubtypes maps the NUT device.type to the registry subtype.
var deviceSubtypes = map[string]model.Subtype{
	"ups": model.SubtypeUPS,
	"pdu": model.SubtypeEPDU,
	"ats": model.SubtypeSTS,
}

// assetAttributes maps NUT variables to read-only extended attributes.
var assetAttributes = []struct {
	variable  string
	attribute string
}{
	{"device.mfr", "manufacturer"},
	{"device.model", "model"},
	{"device.serial", "serial_no"},
	{"device.part", "device.part"},
	{"device.description", "description"},
	{"ups.firmware", "firmware"},
}

// ParseDump reads the "variable: value" lines printed by a driver.
// Debug lines and anything not shaped like a NUT variable are skipped.
func ParseDump(out string) map[string]string {
	values := make(map[string]string)
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if !dumpKey.MatchString(key) {
			continue
		}
		values[key] = strings.TrimSpace(value)
	}
	return values
}

// Assets maps a driver dump to discovered assets. A daisy chain
// (device.count > 1) yields one asset per chained device; sensors are
// attached to the first one.
func Assets(values map[string]string) []model.DiscoveredAsset {
	devices := splitChain(values)

	assets := make([]model.DiscoveredAsset, 0, len(devices))
	for i, dev := range devices {
		asset, ok := deviceAsset(dev)
		if !ok {
			continue
		}
		if i == 0 {
			asset.Sensors = sensors(values)
		}
		assets = append(assets, asset)
	}
	return assets
}

func splitChain(values map[string]string) []map[string]string {
	count, _ := strconv.Atoi(values["device.count"])
	if count <= 1 {
		return []map[string]string{values}
	}

	devices := make([]map[string]string, count)
	for i := range devices {
		devices[i] = make(map[string]string)
	}
	for k, v := range values {
		m := chainKey.FindStringSubmatch(k)
		if m == nil {
			continue
		}
		idx, _ := strconv.Atoi(m[1])
		if idx > count {
			continue
		}
		devices[idx-1]["device."+m[2]] = v
	}
	return devices
}

func deviceAsset(dev map[string]string) (model.DiscoveredAsset, bool) {
	subtype, ok := deviceSubtypes[strings.ToLower(dev["device.type"])]
	if !ok {
		return model.DiscoveredAsset{}, false
	}

	asset := model.DiscoveredAsset{
		Type:    "device",
		Subtype: subtype.String(),
	}
	for _, a := range assetAttributes {
		if v := dev[a.variable]; v != "" {
			asset.Ext = append(asset.Ext, model.ExtEntry{a.attribute: v, model.ReadOnlyKey: "true"})
		}
	}
	return asset, true
}

func sensors(values map[string]string) []model.Sensor {
	var indexes []int
	for k, v := range values {
		m := ambientActive.FindStringSubmatch(k)
		if m == nil || !isYes(v) {
			continue
		}
		idx, _ := strconv.Atoi(m[1])
		indexes = append(indexes, idx)
	}
	slices.Sort(indexes)

	out := make([]model.Sensor, 0, len(indexes))
	for _, idx := range indexes {
		prefix := "ambient." + strconv.Itoa(idx) + "."
		s := model.Sensor{
			Type:    "device",
			Subtype: model.SubtypeSensor.String(),
			Ext: []model.ExtEntry{
				{"external_port": strconv.Itoa(idx), model.ReadOnlyKey: "true"},
			},
		}
		for _, a := range []struct{ variable, attribute string }{
			{"mfr", "manufacturer"},
			{"model", "model"},
			{"serial", "serial_no"},
		} {
			if v := values[prefix+a.variable]; v != "" {
				s.Ext = append(s.Ext, model.ExtEntry{a.attribute: v, model.ReadOnlyKey: "true"})
			}
		}
		out = append(out, s)
	}
	return out
}

func isYes(v string) bool {
	switch strings.ToLower(v) {
	case "yes", "1", "true":
		return true
	default:
		return false
	}
}
