package datasource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildRequestURL(t *testing.T) {
	tests := []struct {
		name     string
		zone     string
		key      string
		expected string
	}{
		{
			name:     "region and city",
			zone:     "Europe/Lisbon",
			key:      "secret",
			expected: "https://timezoneapi.io/api/timezone/?Europe/Lisbon&token=secret",
		},
		{
			name:     "three part zone",
			zone:     "America/Argentina/Buenos_Aires",
			key:      "k",
			expected: "https://timezoneapi.io/api/timezone/?America/Argentina/Buenos_Aires&token=k",
		},
		{
			name:     "reserved characters are escaped",
			zone:     "Etc/GMT+5",
			key:      "a&b",
			expected: "https://timezoneapi.io/api/timezone/?Etc/GMT%2B5&token=a%26b",
		},
		{
			name:     "malformed zone passes through",
			zone:     "not a zone",
			key:      "k",
			expected: "https://timezoneapi.io/api/timezone/?not+a+zone&token=k",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BuildRequestURL(DefaultBaseURL, tt.zone, tt.key))
		})
	}
}

func TestBuildRequestURLs_KeepsOrder(t *testing.T) {
	urls := BuildRequestURLs("http://localhost/", []string{"B/b", "A/a", "C/c"}, "k")

	assert.Equal(t, []string{
		"http://localhost/?B/b&token=k",
		"http://localhost/?A/a&token=k",
		"http://localhost/?C/c&token=k",
	}, urls)
}

func TestZoneFromQuery(t *testing.T) {
	for _, zone := range []string{"Europe/Lisbon", "Etc/GMT+5", "Etc/GMT-14", "America/Los_Angeles"} {
		t.Run(zone, func(t *testing.T) {
			built := BuildRequestURL("", zone, "k")
			assert.Equal(t, zone, ZoneFromQuery(built[1:]))
		})
	}

	assert.Empty(t, ZoneFromQuery("token=k"))
	assert.Empty(t, ZoneFromQuery(""))
}
