package datasource_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"worldclock/api"
	"worldclock/collector"
	"worldclock/datasource"
	"worldclock/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "test-token"

func lisbon() api.ZoneEntry {
	return api.ZoneEntry{
		Fixed: &api.Datetime{
			Hour12WiLZ:  "05",
			Minutes:     "30",
			Seconds:     "00",
			HourAmPm:    "PM",
			OffsetHours: "1",
		},
	}
}

func newSource(t *testing.T, store *api.ZoneStore) *datasource.TimezoneAPISource {
	t.Helper()
	server := httptest.NewServer(api.NewServer(store, testToken).Handler())
	t.Cleanup(server.Close)
	return datasource.NewTimezoneAPISource(testToken, server.URL+api.TimezonePath, 4)
}

func TestFetchTimezone_Lisbon(t *testing.T) {
	store := api.NewZoneStore()
	store.Set("Europe/Lisbon", lisbon())

	record, err := newSource(t, store).FetchTimezone(context.Background(), "Europe/Lisbon")
	require.NoError(t, err)

	assert.Equal(t, "Europe/Lisbon", record.Zone)
	assert.Equal(t, "Europe/Lisbon", record.Requested)
	assert.Equal(t, int8(1), record.OffsetHours)
	assert.Equal(t, "05:30:00 PM", record.CurrentTime())
	assert.False(t, record.FetchedAt.IsZero())
	assert.Equal(t, models.OutputRow{Offset: 1, Zone: "Europe/Lisbon", CurrentTime: "05:30:00 PM"}, record.Row())
}

func TestFetchTimezone_UsesEchoedZoneID(t *testing.T) {
	store := api.NewZoneStore()
	entry := lisbon()
	entry.ID = "Europe/Lisbon"
	store.Set("Portugal", entry)

	record, err := newSource(t, store).FetchTimezone(context.Background(), "Portugal")
	require.NoError(t, err)

	assert.Equal(t, "Europe/Lisbon", record.Zone)
	assert.Equal(t, "Portugal", record.Requested)
}

func TestFetchTimezone_LiveLocation(t *testing.T) {
	store := api.NewZoneStore()
	require.NoError(t, store.AddLocation("Asia/Tokyo"))

	record, err := newSource(t, store).FetchTimezone(context.Background(), "Asia/Tokyo")
	require.NoError(t, err)

	assert.Equal(t, int8(9), record.OffsetHours)
	assert.Len(t, record.CurrentTime(), len("05:30:00 PM"))
}

func TestFetchTimezone_Errors(t *testing.T) {
	store := api.NewZoneStore()
	store.Set("Status/Error", api.ZoneEntry{Status: http.StatusServiceUnavailable})
	store.Set("Bad/Json", api.ZoneEntry{RawBody: `{"meta": {"code": "200"}, "data": [`})
	store.Set("No/Data", api.ZoneEntry{RawBody: `{"meta": {"code": "200"}}`})
	store.Set("Half/Hour", api.ZoneEntry{Fixed: &api.Datetime{OffsetHours: "5.5"}})
	store.Set("Too/Far", api.ZoneEntry{Fixed: &api.Datetime{OffsetHours: "15"}})

	source := newSource(t, store)
	ctx := context.Background()

	t.Run("http status", func(t *testing.T) {
		_, err := source.FetchTimezone(ctx, "Status/Error")
		var httpErr *datasource.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
		assert.Equal(t, "Status/Error", httpErr.Zone)
	})

	t.Run("unknown zone", func(t *testing.T) {
		_, err := source.FetchTimezone(ctx, "Nowhere/Special")
		var apiErr *datasource.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "404", apiErr.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		_, err := source.FetchTimezone(ctx, "Bad/Json")
		var decodeErr *datasource.DecodeError
		require.ErrorAs(t, err, &decodeErr)
	})

	t.Run("missing data", func(t *testing.T) {
		_, err := source.FetchTimezone(ctx, "No/Data")
		var decodeErr *datasource.DecodeError
		require.ErrorAs(t, err, &decodeErr)
	})

	t.Run("fractional offset", func(t *testing.T) {
		_, err := source.FetchTimezone(ctx, "Half/Hour")
		var fieldErr *datasource.FieldParseError
		require.ErrorAs(t, err, &fieldErr)
		assert.Equal(t, "offset_hours", fieldErr.Field)
		assert.Equal(t, "5.5", fieldErr.Value)
	})

	t.Run("offset out of range", func(t *testing.T) {
		_, err := source.FetchTimezone(ctx, "Too/Far")
		var fieldErr *datasource.FieldParseError
		require.ErrorAs(t, err, &fieldErr)
	})
}

func TestFetchTimezone_WrongToken(t *testing.T) {
	store := api.NewZoneStore()
	store.Set("Europe/Lisbon", lisbon())
	server := httptest.NewServer(api.NewServer(store, "other").Handler())
	defer server.Close()

	source := datasource.NewTimezoneAPISource(testToken, server.URL+api.TimezonePath, 1)
	_, err := source.FetchTimezone(context.Background(), "Europe/Lisbon")

	var httpErr *datasource.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
}

func TestFetchTimezone_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	source := datasource.NewTimezoneAPISource(testToken, url+api.TimezonePath, 1)
	_, err := source.FetchTimezone(context.Background(), "Europe/Lisbon")

	var transportErr *datasource.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "Europe/Lisbon", transportErr.Zone)
}

func TestFetchTimezone_ContextCanceled(t *testing.T) {
	store := api.NewZoneStore()
	store.Set("Europe/Lisbon", lisbon())
	source := newSource(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := source.FetchTimezone(ctx, "Europe/Lisbon")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFetchTimezone_SharesOneClient(t *testing.T) {
	var newConns atomic.Int32
	store := api.NewZoneStore()
	store.Set("Europe/Lisbon", lisbon())

	server := httptest.NewUnstartedServer(api.NewServer(store, testToken).Handler())
	server.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			newConns.Add(1)
		}
	}
	server.Start()
	defer server.Close()

	source := datasource.NewTimezoneAPISource(testToken, server.URL+api.TimezonePath, 1)
	for i := 0; i < 5; i++ {
		_, err := source.FetchTimezone(context.Background(), "Europe/Lisbon")
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), newConns.Load(), "sequential requests should reuse the pooled connection")
}

func TestParseOffsetHours(t *testing.T) {
	valid := map[string]int8{"0": 0, "1": 1, "-5": -5, "+14": 14, "-12": -12, " 3 ": 3}
	for in, want := range valid {
		got, err := datasource.ParseOffsetHours(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "abc", "5.5", "15", "-13", "200"} {
		_, err := datasource.ParseOffsetHours(in)
		assert.Error(t, err, in)
	}
}

func TestFetchTimezone_RequestTimeout(t *testing.T) {
	store := api.NewZoneStore()
	hung := lisbon()
	hung.Delay = time.Second
	store.Set("Hung/Zone", hung)

	source := newSource(t, store)
	source.SetRequestTimeout(50 * time.Millisecond)

	_, err := source.FetchTimezone(context.Background(), "Hung/Zone")
	var transportErr *datasource.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimitedSource_PacingDoesNotCountAgainstTimeout(t *testing.T) {
	zones := []string{"A/a", "B/b", "C/c", "D/d"}
	store := api.NewZoneStore()
	for _, zone := range zones {
		store.Set(zone, lisbon())
	}

	source := newSource(t, store)
	source.SetRequestTimeout(150 * time.Millisecond)

	// 4 zones at 10 rps with a burst of 1 take ~300ms, twice the timeout
	limited := datasource.NewRateLimitedSource(source, 10, 1)
	started := time.Now()
	results := collector.NewCollector(limited, 0).Collect(context.Background(), zones)

	require.Len(t, results, len(zones))
	for _, r := range results {
		assert.NoError(t, r.Err, r.Zone)
	}
	assert.GreaterOrEqual(t, time.Since(started), 250*time.Millisecond, "requests should be paced")
}
