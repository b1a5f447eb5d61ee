// Package comp computes flight-delay compensation amounts from route
// distance and delay duration, per the EU261-style distance/delay table.
package comp

import (
	"fmt"
	"math"

	"github.com/geniusjr001/claimsvoice/internal/airports"
)

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance between two coordinates in
// kilometers.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// Band is a named distance tier.
type Band string

const (
	BandNone   Band = "none"
	BandShort  Band = "up_to_1500_km"
	BandMedium Band = "1500_to_3500_km"
	BandLong   Band = "over_3500_km"
)

// Estimate is the outcome of the stateless classifier.
type Estimate struct {
	DistanceKm float64 `json:"distance_km"`
	DelayHours float64 `json:"delay_hours"`
	Eligible   bool    `json:"eligible"`
	Band       Band    `json:"band"`
	Amount     int     `json:"amount"`
}

// Classify applies a uniform three-hour eligibility minimum across all
// distance tiers. The session calculator (Calculator.Compute) requires four
// hours for the long tier instead; the two variants intentionally disagree
// there and must not be unified.
func Classify(distanceKm, delayHours float64) Estimate {
	est := Estimate{
		DistanceKm: math.Round(distanceKm*10) / 10,
		DelayHours: delayHours,
		Band:       BandNone,
	}
	if delayHours < 3 {
		return est
	}
	est.Eligible = true
	switch {
	case distanceKm <= 1500:
		est.Band, est.Amount = BandShort, 250
	case distanceKm <= 3500:
		est.Band, est.Amount = BandMedium, 400
	default:
		est.Band, est.Amount = BandLong, 600
	}
	return est
}

// Resolver turns free-text airport references and IATA codes into dataset
// entries. *airports.Index satisfies it.
type Resolver interface {
	Resolve(token string) (airports.Airport, bool)
	Lookup(iata string) (airports.Airport, bool)
}

// Calculator resolves airport tokens and applies the compensation table.
type Calculator struct {
	resolver Resolver
}

// NewCalculator creates a Calculator over the given resolver.
func NewCalculator(r Resolver) *Calculator {
	return &Calculator{resolver: r}
}

// Compute maps a route and delay to a formatted monetary amount. Either
// airport failing to resolve yields not-ok (cannot compute, never guesses);
// a resolved route below its tier's delay threshold yields "€0.00", which
// is a computed result, not absence.
func (c *Calculator) Compute(origin, dest string, delayHours float64) (string, bool) {
	from, ok := c.resolver.Resolve(origin)
	if !ok {
		return "", false
	}
	to, ok := c.resolver.Resolve(dest)
	if !ok {
		return "", false
	}

	dist := Haversine(from.Lat, from.Lon, to.Lat, to.Lon)
	amount := 0
	switch {
	case dist <= 1500:
		if delayHours >= 3 {
			amount = 250
		}
	case dist <= 3500:
		if delayHours >= 3 {
			amount = 400
		}
	default:
		if delayHours >= 4 {
			amount = 600
		}
	}
	return fmt.Sprintf("€%.2f", float64(amount)), true
}

// RouteEstimate is the IATA-to-IATA estimate with route details.
type RouteEstimate struct {
	Origin      airports.Airport `json:"origin"`
	Destination airports.Airport `json:"destination"`
	Estimate
}

// EstimateByIATA resolves two IATA codes and classifies the route with the
// uniform three-hour variant. Unknown codes are errors, unlike the silent
// absence in Compute, because the caller asked for these codes explicitly.
func (c *Calculator) EstimateByIATA(origin, dest string, delayHours float64) (*RouteEstimate, error) {
	from, ok := c.resolver.Lookup(origin)
	if !ok {
		return nil, fmt.Errorf("comp: unknown origin airport %q", origin)
	}
	to, ok := c.resolver.Lookup(dest)
	if !ok {
		return nil, fmt.Errorf("comp: unknown destination airport %q", dest)
	}
	dist := Haversine(from.Lat, from.Lon, to.Lat, to.Lon)
	return &RouteEstimate{
		Origin:      from,
		Destination: to,
		Estimate:    Classify(dist, delayHours),
	}, nil
}
