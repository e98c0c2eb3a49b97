package ingest

import (
	"strings"

	"github.com/BearBump/FleetPulse/internal/models"
)

// Inference is what a single event implies about a vehicle. A nil Online
// means the event carried no shift/online signal and the stored explicit
// flag must be left alone.
type Inference struct {
	Online *bool
	Code   *string
	Label  *string
}

var explicitBoolKeys = []string{
	"online", "isOnline", "is_online",
	"onShift", "isOnShift", "on_shift",
	"loggedOn", "signedOn",
}

var statusTextKeys = []string{
	"status", "driverStatus", "driver_status", "jobStatus", "job_status",
	"state", "shiftStatus", "shift_status",
	"eventType", "event_type", "eventSubType", "event_sub_type",
	"type", "action", "description",
}

type vocabEntry struct {
	prefix string
	online *bool // nil = neutral: label only
	label  string
}

var (
	vocabOnline  = ptrBool(true)
	vocabOffline = ptrBool(false)
)

// Known dispatch job-state vocabulary, matched by prefix against the
// normalized token. The off-shift family always resolves offline; the
// job-cycle family implies the driver is working.
var statusVocab = []vocabEntry{
	{"NOT_WORKING", vocabOffline, "Not working"},
	{"OFF_SHIFT", vocabOffline, "Off shift"},
	{"OFFSHIFT", vocabOffline, "Off shift"},
	{"OFF_DUTY", vocabOffline, "Off duty"},
	{"LOGGED_OFF", vocabOffline, "Logged off"},
	{"LOGOFF", vocabOffline, "Logged off"},
	{"AVAILABLE", vocabOnline, "Available"},
	{"CLEAR", vocabOnline, "Clear"},
	{"BUSY", vocabOnline, "Busy"},
	{"DISPATCHED", vocabOnline, "Dispatched"},
	{"EN_ROUTE", vocabOnline, "En route"},
	{"ENROUTE", vocabOnline, "En route"},
	{"ARRIVED", vocabOnline, "Arrived"},
	{"POB", vocabOnline, "Passenger on board"},
	{"STC", vocabOnline, "Soon to clear"},
	{"ON_BREAK", nil, "On break"},
	{"BREAK", nil, "On break"},
}

// Offline keywords are checked first: when a free-text status matches both
// sets ("not working" contains "working") the conservative reading wins.
var offlineKeywords = []string{
	"logged out", "log out", "logout", "logged off", "log off", "logoff",
	"signed off", "sign off", "off shift", "off duty", "not working",
	"end", "finish", "stopped", "unavailab",
}

var onlineKeywords = []string{
	"logged in", "log in", "login", "logon", "logged on",
	"signed on", "sign on", "on shift", "on duty",
	"start", "busy", "clear", "available", "working", "active",
}

var shiftStartKeys = []string{"startedAt", "started_at", "shiftStart", "shift_start", "startTime", "start_time"}
var shiftEndKeys = []string{"endedAt", "ended_at", "shiftEnd", "shift_end", "endTime", "end_time"}

// Infer resolves what one normalized event says about a vehicle, applying
// the layers in fixed order: explicit boolean, known vocabulary, keyword
// substrings, shift-timestamp structure. First match wins; no match leaves
// Online nil and passes the raw code through as the label.
func Infer(ev map[string]any, kind models.EventKind) Inference {
	var inf Inference

	rawCode := probeString(ev, statusTextKeys)
	if rawCode != "" {
		inf.Code = &rawCode
	}

	// Layer 1: an explicit boolean is trusted absolutely, for every kind.
	for _, k := range explicitBoolKeys {
		if b, ok := ev[k].(bool); ok {
			v := b
			inf.Online = &v
			break
		}
	}

	// Pings carry no status text; anything further is for the other kinds.
	if kind == models.EventKindPing {
		return inf
	}

	if rawCode != "" {
		token := normalizeToken(rawCode)

		// Layer 2: known vocabulary, by prefix.
		for _, e := range statusVocab {
			if strings.HasPrefix(token, e.prefix) {
				if inf.Online == nil && e.online != nil {
					v := *e.online
					inf.Online = &v
				}
				label := e.label
				inf.Label = &label
				break
			}
		}

		// Layer 3: keyword substrings on the free text, offline set first.
		if inf.Online == nil {
			lower := strings.ToLower(rawCode)
			if containsAny(lower, offlineKeywords) {
				inf.Online = ptrBool(false)
			} else if containsAny(lower, onlineKeywords) {
				inf.Online = ptrBool(true)
			}
		}
	}

	// Layer 4: shift events without usable text still tell us something
	// structurally: a start timestamp without an end means on shift.
	if inf.Online == nil && kind == models.EventKindShift {
		started := hasValue(ev, shiftStartKeys)
		ended := hasValue(ev, shiftEndKeys)
		if started && !ended {
			inf.Online = ptrBool(true)
		} else if ended && !started {
			inf.Online = ptrBool(false)
		}
	}

	// Layer 5: no label resolved, raw code passes through verbatim.
	if inf.Label == nil && inf.Code != nil {
		inf.Label = inf.Code
	}

	return inf
}

func normalizeToken(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func hasValue(ev map[string]any, keys []string) bool {
	for _, k := range keys {
		switch v := ev[k].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return true
			}
		case float64:
			if v > 0 {
				return true
			}
		}
	}
	return false
}

func ptrBool(b bool) *bool { return &b }
