package holiday

import "math"

// unknownEquinoxDay is returned for years without an approximation. It never
// equals a day of month, so no equinox holiday fires in those years.
const unknownEquinoxDay = 99

// equinoxBracket is one row of the civil-calendar approximation
// floor(base + 0.242194*(year-1980) - floor((year-offset)/4)).
type equinoxBracket struct {
	lastYear int
	spring   float64
	autumn   float64
	offset   int
}

const equinoxDrift = 0.242194

var equinoxBrackets = []equinoxBracket{
	{lastYear: 1979, spring: 20.8357, autumn: 23.2588, offset: 1983},
	{lastYear: 2099, spring: 20.8431, autumn: 23.2488, offset: 1980},
	{lastYear: 2150, spring: 21.851, autumn: 24.2488, offset: 1980},
}

// SpringEquinoxDay returns the day of March on which 春分の日 falls in year,
// or 99 when the year is outside the approximation (before 1948, after 2150).
func SpringEquinoxDay(year int) int {
	b, ok := bracketFor(year)
	if !ok {
		return unknownEquinoxDay
	}
	return approximateEquinox(b.spring, b.offset, year)
}

// AutumnEquinoxDay returns the day of September on which 秋分の日 falls in year,
// or 99 when the year is outside the approximation.
func AutumnEquinoxDay(year int) int {
	b, ok := bracketFor(year)
	if !ok {
		return unknownEquinoxDay
	}
	return approximateEquinox(b.autumn, b.offset, year)
}

func bracketFor(year int) (equinoxBracket, bool) {
	if year <= 1947 {
		return equinoxBracket{}, false
	}
	for _, b := range equinoxBrackets {
		if year <= b.lastYear {
			return b, true
		}
	}
	return equinoxBracket{}, false
}

func approximateEquinox(base float64, offset, year int) int {
	leap := math.Floor(float64(year-offset) / 4)
	return int(math.Floor(base + equinoxDrift*float64(year-1980) - leap))
}
