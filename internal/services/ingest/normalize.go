package ingest

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Webhook senders have shipped event lists under many envelope fields over
// the years. Probed in order; first key holding an array wins.
var wrapperKeys = []string{
	"data", "items", "payload", "events",
	"locations", "tracks", "shifts", "statuses", "vehicles", "results",
}

// Events flattens a raw webhook body into per-vehicle event objects.
// Accepts a single object, an array of objects, or an object wrapping an
// array under a known field name. A null/empty body yields no events.
// Any other object shape is treated as one event; unparseable bodies and
// non-object array elements are dropped.
func Events(body []byte) []map[string]any {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil
	}

	switch t := v.(type) {
	case []any:
		return objects(t)
	case map[string]any:
		for _, k := range wrapperKeys {
			if arr, ok := t[k].([]any); ok {
				return objects(arr)
			}
		}
		return []map[string]any{t}
	default:
		return nil
	}
}

func objects(items []any) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

var callsignKeys = []string{
	"callsign", "callSign", "call_sign",
	"code", "vehicleCallsign", "vehicle_callsign", "vehicleCode",
	"vehicleRef", "vehicleId", "vehicle_id",
	"mdt", "mdtId", "fleetNumber", "fleet_number",
	"driverCallsign", "unit", "unitId",
}

var callsignSubObjects = []string{"driver", "vehicle"}

// Callsign probes an event for a vehicle identifier: top-level aliases
// first, then driver/vehicle sub-objects. Returns "" when nothing matches.
// Callers normalize the result before using it as a key.
func Callsign(ev map[string]any) string {
	if s := probeString(ev, callsignKeys); s != "" {
		return s
	}
	for _, k := range callsignSubObjects {
		if sub, ok := ev[k].(map[string]any); ok {
			if s := probeString(sub, callsignKeys); s != "" {
				return s
			}
		}
	}
	return ""
}

func probeString(m map[string]any, keys []string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			// Some sources send fleet numbers as JSON numbers.
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

var timeKeys = []string{
	"timestamp", "time", "ts",
	"eventTime", "event_time", "recordedAt", "recorded_at",
	"updatedAt", "updated_at", "at",
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02.01.2006 15:04:05",
}

// EventTime probes the usual timestamp aliases and parses string dates or
// unix seconds/milliseconds. Falls back to the given time (normally the
// server receive time) when the event carries nothing usable.
func EventTime(ev map[string]any, fallback time.Time) time.Time {
	for _, k := range timeKeys {
		switch v := ev[k].(type) {
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			for _, layout := range timeLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					return t.UTC()
				}
			}
		case float64:
			if v <= 0 {
				continue
			}
			if v > 1e12 { // milliseconds
				return time.UnixMilli(int64(v)).UTC()
			}
			return time.Unix(int64(v), 0).UTC()
		}
	}
	return fallback
}
