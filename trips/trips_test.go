package trips_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jrsteele09/carpool-client/trips"
	"github.com/stretchr/testify/require"
)

func TestFormatDomain(t *testing.T) {
	require.Equal(t, "AB 123 CD", trips.FormatDomain("ab123cd"))
	require.Equal(t, "ABC 123", trips.FormatDomain("ABC 123"))
	require.Equal(t, "", trips.FormatDomain("  "))
}

func TestCapitalizeWords(t *testing.T) {
	require.Equal(t, "In Progress", trips.CapitalizeWords("IN_PROGRESS"))
	require.Equal(t, "Created", trips.CapitalizeWords("CREATED"))
	require.Equal(t, "Buenos Aires", trips.CapitalizeWords("buenos  aires"))
	require.Equal(t, "", trips.CapitalizeWords(""))
}

func TestFormatDateTimeAndClock(t *testing.T) {
	ts := time.Date(2025, 3, 9, 21, 5, 0, 0, time.UTC)
	require.Equal(t, "09/03/2025 21:05", trips.FormatDateTime(ts, time.UTC))
	require.Equal(t, "", trips.FormatDateTime(time.Time{}, nil))
	require.Equal(t, "moon", trips.ClockIcon(ts))
	require.Equal(t, "sunrise", trips.ClockIcon(ts.Add(-12*time.Hour)))
	require.Equal(t, "sun", trips.ClockIcon(ts.Add(-6*time.Hour)))
}

func TestButtonFor(t *testing.T) {
	b, ok := trips.ButtonFor(trips.StateClosed)
	require.True(t, ok)
	require.Equal(t, trips.ActionStart, b.Action)
	require.Equal(t, "/current-trip", b.NextRoute)

	b, ok = trips.ButtonFor(trips.StateFinished)
	require.True(t, ok)
	require.True(t, b.Disabled)

	_, ok = trips.ButtonFor("UNKNOWN")
	require.False(t, ok)
}

func TestTripDriverDecode(t *testing.T) {
	raw := `{"id":9,"startCity":"Rosario","destinationCity":"Córdoba","seatPrice":4500,
		"startDateTime":"2025-03-09T08:30:00Z","tripState":"CREATED",
		"vehicle":{"brand":"Fiat","model":"Cronos","domain":"AB123CD","vehicleTypeName":"Sedan"}}`
	var trip trips.TripDriver
	require.NoError(t, json.Unmarshal([]byte(raw), &trip))
	require.Equal(t, trips.StateCreated, trip.TripState)
	require.Equal(t, "https://pub.example.dev/sedan.png", trip.VehicleImage("https://pub.example.dev/"))
}
