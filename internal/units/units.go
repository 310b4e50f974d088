// Package units converts the measurement units of the source extracts into
// the ones the report displays.
package units

// Conversion factors
const (
	MinutesPerHour = 60.0
	HoursPerDay    = 24.0
)

// MinutesToHours converts a duration in minutes to hours.
// Dataverse records runtime durations in minutes.
func MinutesToHours(minutes float64) float64 {
	return minutes / MinutesPerHour
}

// HoursToDays converts a duration in hours to days.
func HoursToDays(hours float64) float64 {
	return hours / HoursPerDay
}

// Percent converts a 0..1 fraction, as the utilization extract stores
// rates, to a percentage.
func Percent(fraction float64) float64 {
	return fraction * 100
}
