// Package rule holds the pure decision logic: given an observation, is it hot
// enough (and dry enough, when required) to flip the status on.
package rule

import "swelter/internal/types"

// OpenWeather condition-ID bands that count as precipitation. Snow (6xx) and
// atmosphere codes (7xx) do not.
const (
	thunderstormLo = 200
	thunderstormHi = 299
	drizzleLo      = 300
	drizzleHi      = 399
	rainLo         = 500
	rainHi         = 599
)

// Precipitating reports whether any condition ID falls in the thunderstorm,
// drizzle, or rain bands. Total over the whole code space: unknown codes and an
// empty list both mean no precipitation.
func Precipitating(conditionIDs []int) bool {
	for _, id := range conditionIDs {
		switch {
		case id >= thunderstormLo && id <= thunderstormHi:
			return true
		case id >= drizzleLo && id <= drizzleHi:
			return true
		case id >= rainLo && id <= rainHi:
			return true
		}
	}
	return false
}

// ShouldActivate decides whether the status update fires. The temperature
// comparison is strictly greater-than: a reading exactly at the threshold does
// not activate.
func ShouldActivate(obs types.Observation, thresholdF float64, requireDry bool) bool {
	if obs.TempF <= thresholdF {
		return false
	}
	if requireDry && Precipitating(obs.ConditionIDs) {
		return false
	}
	return true
}
