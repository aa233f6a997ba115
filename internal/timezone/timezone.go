// Package timezone derives the civil time zone for a service request and
// converts between zone-local wall time and stored UTC instants.
//
// Only two zones are in play: mainland Portugal and the Azores. Everything
// unrecognized normalizes to Lisbon so a bad value can never shift a visit by
// an unbounded offset.
package timezone

import (
	"strings"
	"time"

	"homeservices/internal/workflow"
)

const (
	ZoneLisbon = "Europe/Lisbon"
	ZoneAzores = "Atlantic/Azores"
)

// localLayout is the wall-time format used by the request forms.
const localLayout = "2006-01-02T15:04"

// InferFromPostalCode maps a Portuguese postal code to a zone. Azorean codes
// start with 95..99; everything else (including Madeira, which the service
// does not cover) resolves to Lisbon.
func InferFromPostalCode(postalCode string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, postalCode)
	if len(digits) < 2 {
		return ZoneLisbon
	}
	prefix := digits[:2]
	if prefix >= "95" && prefix <= "99" {
		return ZoneAzores
	}
	return ZoneLisbon
}

// Normalize collapses any persisted value onto one of the two supported zones.
func Normalize(zone string) string {
	if strings.TrimSpace(zone) == ZoneAzores {
		return ZoneAzores
	}
	return ZoneLisbon
}

// Resolve picks the authoritative zone for a request.
//
// Precedence: an explicitly persisted Azores zone wins outright; otherwise a
// postal-code-inferred Azores wins; otherwise the persisted value if present,
// else the inferred one. This ordering exists because the zone used to default
// to Lisbon even for Azorean addresses whenever the persisted field was stale.
func Resolve(persisted, postalCode string) string {
	if strings.TrimSpace(persisted) == ZoneAzores {
		return ZoneAzores
	}
	if inferred := InferFromPostalCode(postalCode); inferred == ZoneAzores {
		return ZoneAzores
	}
	if strings.TrimSpace(persisted) != "" {
		return Normalize(persisted)
	}
	return ZoneLisbon
}

// LocalToUTC parses a naive wall-time string ("2006-01-02T15:04") in the given
// zone and returns the UTC instant. Empty input is an explicit error, not a
// zero time: callers must distinguish "no date" before converting.
func LocalToUTC(local, zone string) (time.Time, error) {
	if strings.TrimSpace(local) == "" {
		return time.Time{}, workflow.E(workflow.KindValidation, "empty local date-time")
	}
	loc, err := time.LoadLocation(Normalize(zone))
	if err != nil {
		return time.Time{}, workflow.Wrap(workflow.KindConfiguration, "time zone database unavailable", err)
	}
	t, err := time.ParseInLocation(localLayout, local, loc)
	if err != nil {
		// Tolerate a seconds component from older clients.
		t, err = time.ParseInLocation("2006-01-02T15:04:05", local, loc)
		if err != nil {
			return time.Time{}, workflow.Wrap(workflow.KindValidation, "unparsable local date-time", err)
		}
	}
	return t.UTC(), nil
}

// UTCToLocalParts renders a stored instant as zone-local date and time strings
// for form prefill. An unparsable instant yields empty strings rather than an
// error: display code treats missing and malformed the same way.
func UTCToLocalParts(utcISO, zone string) (date, clock string) {
	s := strings.TrimSpace(utcISO)
	if s == "" {
		return "", ""
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse("2006-01-02T15:04:05", s)
		if err != nil {
			return "", ""
		}
		t = t.UTC()
	}
	loc, err := time.LoadLocation(Normalize(zone))
	if err != nil {
		return "", ""
	}
	local := t.In(loc)
	return local.Format("2006-01-02"), local.Format("15:04")
}
