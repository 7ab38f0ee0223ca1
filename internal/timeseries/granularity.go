package timeseries

import (
	"fmt"
	"strings"
	"time"

	"bilancio/internal/core"
)

// Granularity is the regular time unit used to bucket transactions.
type Granularity string

const (
	Week    Granularity = "week" // ISO weeks, starting on Monday
	Month   Granularity = "month"
	Quarter Granularity = "quarter"
	Year    Granularity = "year"
)

// Granularities returns every supported granularity.
func Granularities() []Granularity {
	return []Granularity{Week, Month, Quarter, Year}
}

// ParseGranularity matches s case-insensitively against the supported set.
func ParseGranularity(s string) (Granularity, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, g := range Granularities() {
		if s == string(g) {
			return g, nil
		}
	}
	return "", fmt.Errorf("unsupported granularity %q: must be one of %v", s, Granularities())
}

func (g Granularity) String() string {
	return string(g)
}

// epoch is a Monday; week ordinals count whole weeks from it.
var epoch = time.Date(1970, 1, 5, 0, 0, 0, 0, time.UTC)

const secondsPerDay = 24 * 60 * 60

// Ordinal maps a date to the integer index of the period containing it.
// Consecutive periods have consecutive ordinals.
func (g Granularity) Ordinal(d core.Date) int {
	y, m, _ := d.Date()
	switch g {
	case Week:
		days := floorDiv(int(d.Unix()-epoch.Unix()), secondsPerDay)
		return floorDiv(days, 7)
	case Quarter:
		return y*4 + (int(m)-1)/3
	case Year:
		return y
	default:
		return y*12 + int(m) - 1
	}
}

// Start returns the first day of the period with the given ordinal.
func (g Granularity) Start(ordinal int) core.Date {
	switch g {
	case Week:
		return core.DateOf(epoch.AddDate(0, 0, ordinal*7))
	case Quarter:
		return core.NewDate(floorDiv(ordinal, 4), floorMod(ordinal, 4)*3+1, 1)
	case Year:
		return core.NewDate(ordinal, 1, 1)
	default:
		return core.NewDate(floorDiv(ordinal, 12), floorMod(ordinal, 12)+1, 1)
	}
}

// Label renders a period ordinal, e.g. "2025-03", "2025-W07", "2025-Q1" or "2025".
func (g Granularity) Label(ordinal int) string {
	switch g {
	case Week:
		y, w := g.Start(ordinal).ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	case Quarter:
		return fmt.Sprintf("%04d-Q%d", floorDiv(ordinal, 4), floorMod(ordinal, 4)+1)
	case Year:
		return fmt.Sprintf("%04d", ordinal)
	default:
		return fmt.Sprintf("%04d-%02d", floorDiv(ordinal, 12), floorMod(ordinal, 12)+1)
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
