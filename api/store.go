package api

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	// The emulated service must know every IANA zone even on hosts without
	// a zoneinfo database.
	_ "time/tzdata"
)

// Datetime mirrors the datetime fields of a lookup response
type Datetime struct {
	DateTime    string `json:"date_time"`
	Hour12WiLZ  string `json:"hour_12_wilz"`
	Hour24WiLZ  string `json:"hour_24_wilz"`
	HourAmPm    string `json:"hour_am_pm"`
	Minutes     string `json:"minutes"`
	Seconds     string `json:"seconds"`
	OffsetHours string `json:"offset_hours"`
	OffsetTzab  string `json:"offset_tzab"`
}

// ZoneEntry describes how the emulated service answers for one zone
type ZoneEntry struct {
	ID       string         // echoed as data.timezone.id
	Location *time.Location // live clock, used when Fixed is nil
	Fixed    *Datetime      // canned answer
	Status   int            // non-zero forces this HTTP status
	RawBody  string         // sent verbatim instead of JSON when set
	Delay    time.Duration  // artificial latency
}

// ZoneStore holds the zones the emulated service knows about
type ZoneStore struct {
	zones map[string]ZoneEntry
	mutex sync.RWMutex
}

// NewZoneStore creates an empty store
func NewZoneStore() *ZoneStore {
	return &ZoneStore{
		zones: make(map[string]ZoneEntry),
	}
}

// AddLocation registers a zone answered from the live clock
func (s *ZoneStore) AddLocation(zone string) error {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return fmt.Errorf("unknown zone %s: %w", zone, err)
	}
	s.Set(zone, ZoneEntry{ID: zone, Location: loc})
	return nil
}

// Set adds or replaces the entry for a zone
func (s *ZoneStore) Set(zone string, entry ZoneEntry) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if entry.ID == "" {
		entry.ID = zone
	}
	s.zones[zone] = entry
}

// Get retrieves the entry for a zone
func (s *ZoneStore) Get(zone string) (ZoneEntry, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	entry, exists := s.zones[zone]
	return entry, exists
}

// Zones returns all registered zone identifiers
func (s *ZoneStore) Zones() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	zones := make([]string, 0, len(s.zones))
	for zone := range s.zones {
		zones = append(zones, zone)
	}
	return zones
}

// DatetimeAt renders t in the lookup service's string format
func DatetimeAt(t time.Time) Datetime {
	abbr, offset := t.Zone()
	return Datetime{
		DateTime:    t.Format("2006-01-02 15:04:05"),
		Hour12WiLZ:  t.Format("03"),
		Hour24WiLZ:  t.Format("15"),
		HourAmPm:    t.Format("PM"),
		Minutes:     t.Format("04"),
		Seconds:     t.Format("05"),
		OffsetHours: strconv.FormatFloat(float64(offset)/3600, 'f', -1, 64),
		OffsetTzab:  abbr,
	}
}
