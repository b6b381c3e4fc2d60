package datasource

import (
	"net/url"
	"strings"
)

// DefaultBaseURL is the timezone lookup endpoint
const DefaultBaseURL = "https://timezoneapi.io/api/timezone/"

// BuildRequestURL builds the lookup URL for a single zone.
// The service takes the zone as a bare query key followed by the token:
//
//	https://timezoneapi.io/api/timezone/?Europe/Lisbon&token=KEY
//
// The zone is not validated; the service reports unknown zones itself.
func BuildRequestURL(baseURL, zone, apiKey string) string {
	var sb strings.Builder
	sb.WriteString(baseURL)
	sb.WriteByte('?')
	sb.WriteString(escapeZone(zone))
	sb.WriteString("&token=")
	sb.WriteString(url.QueryEscape(apiKey))
	return sb.String()
}

// BuildRequestURLs builds one URL per zone, in the order given
func BuildRequestURLs(baseURL string, zones []string, apiKey string) []string {
	urls := make([]string, 0, len(zones))
	for _, zone := range zones {
		urls = append(urls, BuildRequestURL(baseURL, zone, apiKey))
	}
	return urls
}

// escapeZone keeps the slashes of region/city identifiers readable
func escapeZone(zone string) string {
	parts := strings.Split(zone, "/")
	for i, part := range parts {
		parts[i] = url.QueryEscape(part)
	}
	return strings.Join(parts, "/")
}

// ZoneFromQuery recovers the zone from a raw query built by BuildRequestURL.
// It returns "" when the query does not start with a bare zone key.
func ZoneFromQuery(rawQuery string) string {
	first, _, _ := strings.Cut(rawQuery, "&")
	if strings.Contains(first, "=") {
		return ""
	}
	zone, err := url.QueryUnescape(first)
	if err != nil {
		return first
	}
	return zone
}

