package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"worldclock/logger"
	"worldclock/models"
)

var log = logger.New("datasource")

// maxErrorBody caps how much of a failed response ends up in an HTTPError
const maxErrorBody = 512

// TimezoneAPISource implements TimezoneSource for timezoneapi.io
type TimezoneAPISource struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	now        func() time.Time
}

// Ensure TimezoneAPISource implements TimezoneSource
var _ TimezoneSource = (*TimezoneAPISource)(nil)

// NewTimezoneAPISource creates a source that shares one pooled client across
// every request it makes. An empty baseURL selects DefaultBaseURL.
func NewTimezoneAPISource(apiKey, baseURL string, maxConns int) *TimezoneAPISource {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &TimezoneAPISource{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: NewPooledClient(maxConns),
		now:        time.Now,
	}
}

// SetRequestTimeout bounds every single request; zero disables the bound.
// The bound starts when the request is issued, so time spent waiting in a
// RateLimitedSource does not count against it.
func (p *TimezoneAPISource) SetRequestTimeout(timeout time.Duration) {
	p.timeout = timeout
}

// NewPooledClient builds a client whose transport keeps enough idle
// connections per host for maxConns concurrent requests. The client has no
// overall timeout; callers bound requests through their context.
func NewPooledClient(maxConns int) *http.Client {
	if maxConns < 1 {
		maxConns = 1
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = 7 * time.Second
	transport.ResponseHeaderTimeout = 15 * time.Second
	transport.MaxIdleConnsPerHost = maxConns
	transport.IdleConnTimeout = 90 * time.Second

	return &http.Client{
		Transport: transport,
	}
}

// Name returns the provider name
func (p *TimezoneAPISource) Name() string {
	return "timezoneapi.io"
}

// timezoneAPIResponse holds the fields of the lookup response we consume.
// The service sends far more, all of it ignored.
type timezoneAPIResponse struct {
	Meta struct {
		Code string `json:"code"`
	} `json:"meta"`
	Data *struct {
		Timezone struct {
			ID string `json:"id"`
		} `json:"timezone"`
		Datetime struct {
			Hour12WithZero string `json:"hour_12_wilz"`
			Minutes        string `json:"minutes"`
			Seconds        string `json:"seconds"`
			HourAmPm       string `json:"hour_am_pm"`
			OffsetHours    string `json:"offset_hours"`
		} `json:"datetime"`
	} `json:"data"`
}

// FetchTimezone fetches the current time and UTC offset for a zone
func (p *TimezoneAPISource) FetchTimezone(ctx context.Context, zone string) (models.TimezoneRecord, error) {
	requestURL := BuildRequestURL(p.baseURL, zone, p.apiKey)

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return models.TimezoneRecord{}, &TransportError{Zone: zone, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	log.Debug().
		Str("zone", zone).
		Str("url", BuildRequestURL(p.baseURL, zone, "REDACTED")).
		Msg("requesting timezone")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return models.TimezoneRecord{}, &TransportError{Zone: zone, Err: err}
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			log.Err(err).Str("zone", zone).Msg("Failed to close response body")
		}
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.TimezoneRecord{}, &TransportError{Zone: zone, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		snippet := string(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return models.TimezoneRecord{}, &HTTPError{
			Zone:       zone,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(snippet),
		}
	}

	return p.parse(zone, body)
}

// parse turns a response body into a record
func (p *TimezoneAPISource) parse(zone string, body []byte) (models.TimezoneRecord, error) {
	var response timezoneAPIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return models.TimezoneRecord{}, &DecodeError{Zone: zone, Err: err}
	}

	if response.Meta.Code != "" && response.Meta.Code != "200" {
		return models.TimezoneRecord{}, &APIError{Zone: zone, Code: response.Meta.Code}
	}
	if response.Data == nil {
		return models.TimezoneRecord{}, &DecodeError{Zone: zone, Err: errors.New("response has no data object")}
	}

	dt := response.Data.Datetime
	offset, err := ParseOffsetHours(dt.OffsetHours)
	if err != nil {
		return models.TimezoneRecord{}, &FieldParseError{
			Zone:  zone,
			Field: "offset_hours",
			Value: dt.OffsetHours,
			Err:   err,
		}
	}

	return models.TimezoneRecord{
		Requested:   zone,
		Zone:        response.Data.Timezone.ID,
		Hour:        dt.Hour12WithZero,
		Minutes:     dt.Minutes,
		Seconds:     dt.Seconds,
		AmPm:        dt.HourAmPm,
		OffsetHours: offset,
		FetchedAt:   p.now(),
	}, nil
}

// ParseOffsetHours parses a whole-hour UTC offset such as "1", "-5" or "+14"
func ParseOffsetHours(value string) (int8, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 8)
	if err != nil {
		return 0, err
	}
	if n < models.MinOffsetHours || n > models.MaxOffsetHours {
		return 0, fmt.Errorf("offset %d outside [%d, %d]", n, models.MinOffsetHours, models.MaxOffsetHours)
	}
	return int8(n), nil
}
