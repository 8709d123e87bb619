// Package validate checks extracted quotes for obviously-wrong values
// before they reach persistence, so a parser bug or an unusually-formatted
// supplier file produces a loud per-quote error instead of silently
// corrupting the store.
package validate

import (
	"fmt"
	"time"

	"github.com/altitude-energy/matrix-ingest/internal/domain"
)

var (
	minStartFrom = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxStartFrom = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
)

const (
	minTermMonths = 1
	maxTermMonths = 60
)

// bounds holds the service-type-specific thresholds a Quote is checked
// against. The date/term/price-sign bounds above are shared across all
// service types; these are the ones that differ.
type bounds struct {
	minPrice, maxPrice                       float64
	minMinVolume, maxMinVolume                float64
	minLimitVolume, maxLimitVolume            float64
	minVolumeDifference, maxVolumeDifference float64
}

// Typical electric rates run $.03-$.25/kWh; typical gas rates run
// $.25-$1/therm. The bounds below are deliberately wider than typical to
// catch only clearly-wrong values, not merely unusual ones.
var boundsByServiceType = map[domain.ServiceType]bounds{
	domain.Electric: {
		minPrice: .01, maxPrice: 1.0,
		minMinVolume: 0, maxMinVolume: 4e6,
		minLimitVolume: 10000, maxLimitVolume: 5e6,
		minVolumeDifference: 0, maxVolumeDifference: 5e6,
	},
	domain.Gas: {
		minPrice: .05, maxPrice: 5.0,
		minMinVolume: 0, maxMinVolume: 1e6,
		minLimitVolume: 2000, maxLimitVolume: 1e6,
		minVolumeDifference: 0, maxVolumeDifference: 1e6,
	},
}

// Validate checks q against the bounds for its service type, returning a
// *ValidationError naming every violation found, or nil if q is clean.
func Validate(q domain.Quote) error {
	b, ok := boundsByServiceType[q.ServiceType]
	if !ok {
		return &ValidationError{Violations: []string{
			fmt.Sprintf("unknown service type %q", q.ServiceType),
		}}
	}

	var violations []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			violations = append(violations, fmt.Sprintf(format, args...))
		}
	}

	check(q.StartFrom.Before(q.StartUntil), "start_from %v >= start_until %v", q.StartFrom, q.StartUntil)
	check(!q.StartFrom.Before(minStartFrom) && !q.StartFrom.After(maxStartFrom),
		"start_from too early or late: %v", q.StartFrom)
	check(q.TermMonths >= minTermMonths && q.TermMonths <= maxTermMonths,
		"expected term_months between %d and %d, found %d", minTermMonths, maxTermMonths, q.TermMonths)
	check(q.ValidFrom.Before(q.ValidUntil), "valid_from %v >= valid_until %v", q.ValidFrom, q.ValidUntil)
	check(q.Price >= b.minPrice && q.Price <= b.maxPrice,
		"expected price between %v and %v, found %v", b.minPrice, b.maxPrice, q.Price)

	if q.MinVolume != nil {
		v := *q.MinVolume
		check(v >= b.minMinVolume, "%s: min_volume below %v: %v", q.ServiceType, b.minMinVolume, v)
		check(v <= b.maxMinVolume, "%s: min_volume above %v: %v", q.ServiceType, b.maxMinVolume, v)
	}
	if q.LimitVolume != nil {
		v := *q.LimitVolume
		check(v >= b.minLimitVolume, "%s: limit_volume below %v: %v", q.ServiceType, b.minLimitVolume, v)
		check(v <= b.maxLimitVolume, "%s: limit_volume above %v: %v", q.ServiceType, b.maxLimitVolume, v)
	}
	if q.MinVolume != nil && q.LimitVolume != nil {
		diff := *q.LimitVolume - *q.MinVolume
		check(diff >= b.minVolumeDifference, "%s: volume range difference < %v: %v", q.ServiceType, b.minVolumeDifference, diff)
		check(diff <= b.maxVolumeDifference, "%s: volume range difference > %v: %v", q.ServiceType, b.maxVolumeDifference, diff)
	}

	return newValidationError(violations)
}
