package datasource

import (
	"context"

	"worldclock/models"
)

// TimezoneSource defines the interface for any timezone lookup provider
type TimezoneSource interface {
	Name() string
	FetchTimezone(ctx context.Context, zone string) (models.TimezoneRecord, error)
}
