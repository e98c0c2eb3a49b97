package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEvents_Shapes(t *testing.T) {
	// Single object.
	evs := Events([]byte(`{"callsign":"AB12"}`))
	require.Len(t, evs, 1)

	// Bare array.
	evs = Events([]byte(`[{"callsign":"AB12"},{"callsign":"CD34"}]`))
	require.Len(t, evs, 2)

	// Wrapped arrays under historical envelope fields.
	for _, body := range []string{
		`{"data":[{"callsign":"AB12"}]}`,
		`{"items":[{"callsign":"AB12"}]}`,
		`{"payload":[{"callsign":"AB12"}]}`,
		`{"tracks":[{"callsign":"AB12"}]}`,
		`{"shifts":[{"callsign":"AB12"}]}`,
	} {
		evs = Events([]byte(body))
		require.Len(t, evs, 1, body)
		require.Equal(t, "AB12", Callsign(evs[0]), body)
	}
}

func TestEvents_NullAndEmpty(t *testing.T) {
	require.Empty(t, Events(nil))
	require.Empty(t, Events([]byte("")))
	require.Empty(t, Events([]byte("  ")))
	require.Empty(t, Events([]byte("null")))
	require.Empty(t, Events([]byte(`"just a string"`)))
	require.Empty(t, Events([]byte(`{not json`)))
}

func TestEvents_UnknownShapeFallsBackToSingleEvent(t *testing.T) {
	evs := Events([]byte(`{"weird":true,"callsign":"zz9"}`))
	require.Len(t, evs, 1)
	require.Equal(t, "zz9", Callsign(evs[0]))
}

func TestEvents_SkipsNonObjectElements(t *testing.T) {
	evs := Events([]byte(`{"data":[{"callsign":"A"},42,"x",null,{"callsign":"B"}]}`))
	require.Len(t, evs, 2)
}

func TestEvents_WrapperKeyNotArrayKeepsProbing(t *testing.T) {
	evs := Events([]byte(`{"data":"oops","items":[{"callsign":"A"}]}`))
	require.Len(t, evs, 1)
	require.Equal(t, "A", Callsign(evs[0]))
}

func TestCallsign_Aliases(t *testing.T) {
	cases := map[string]string{
		`{"callsign":" ab12 "}`:                 "ab12",
		`{"callSign":"AB12"}`:                   "AB12",
		`{"code":"X1"}`:                         "X1",
		`{"vehicleRef":"V77"}`:                  "V77",
		`{"mdt":"MDT9"}`:                        "MDT9",
		`{"fleetNumber":42}`:                    "42",
		`{"driver":{"callsign":"D5"}}`:          "D5",
		`{"vehicle":{"fleet_number":"F8"}}`:     "F8",
		`{"driver":{"unrelated":1},"mdt":"M2"}`: "M2",
	}
	for body, want := range cases {
		evs := Events([]byte(body))
		require.Len(t, evs, 1, body)
		require.Equal(t, want, Callsign(evs[0]), body)
	}
}

func TestCallsign_PriorityAndMiss(t *testing.T) {
	evs := Events([]byte(`{"callsign":"TOP","driver":{"callsign":"NESTED"}}`))
	require.Equal(t, "TOP", Callsign(evs[0]))

	evs = Events([]byte(`{"speed":40,"lat":1.2}`))
	require.Equal(t, "", Callsign(evs[0]))
}

func TestEventTime_Formats(t *testing.T) {
	fallback := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	want := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)

	cases := []string{
		`{"timestamp":"2025-06-01T12:30:00Z"}`,
		`{"time":"2025-06-01T12:30:00"}`,
		`{"eventTime":"2025-06-01 12:30:00"}`,
		`{"ts":"01.06.2025 12:30:00"}`,
		`{"timestamp":1748781000}`,
		`{"timestamp":1748781000000}`,
	}
	for _, body := range cases {
		evs := Events([]byte(body))
		require.Len(t, evs, 1, body)
		require.Equal(t, want, EventTime(evs[0], fallback), body)
	}
}

func TestEventTime_Fallback(t *testing.T) {
	fallback := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	evs := Events([]byte(`{"timestamp":"not a date","callsign":"A"}`))
	require.Equal(t, fallback, EventTime(evs[0], fallback))

	evs = Events([]byte(`{"callsign":"A"}`))
	require.Equal(t, fallback, EventTime(evs[0], fallback))
}
