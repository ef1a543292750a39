package calendar

import (
	"fmt"
	"time"
	_ "time/tzdata" // zone data for minimal containers
)

// Provider supplies the current calendar day.
type Provider interface {
	Today() Date
}

// SystemProvider reads the wall clock and converts it to a calendar day
// in a fixed location.
type SystemProvider struct {
	loc *time.Location
	now func() time.Time
}

// NewSystemProvider creates a Provider for the given location. A nil loc means UTC.
func NewSystemProvider(loc *time.Location) *SystemProvider {
	if loc == nil {
		loc = time.UTC
	}
	return &SystemProvider{loc: loc, now: time.Now}
}

// NewSystemProviderForZone resolves an IANA zone name such as "Asia/Tokyo".
func NewSystemProviderForZone(zone string) (*SystemProvider, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", zone, err)
	}
	return NewSystemProvider(loc), nil
}

// Today implements Provider.
func (p *SystemProvider) Today() Date {
	return FromTime(p.now(), p.loc)
}

// Location returns the location used to derive calendar days.
func (p *SystemProvider) Location() *time.Location {
	return p.loc
}

// FixedProvider always returns the same day.
type FixedProvider struct {
	Day Date
}

// Today implements Provider.
func (p FixedProvider) Today() Date {
	return p.Day
}

var (
	_ Provider = (*SystemProvider)(nil)
	_ Provider = FixedProvider{}
)
