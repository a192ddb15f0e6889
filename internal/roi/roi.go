// Package roi projects the time and money a pet-care business saves with Guau Pro.
package roi

import "math"

// Domain policy constants. Changing any of these is a product decision.
const (
	WorkingDaysPerWeek  = 6
	WorkingWeeksPerYear = 50
	TimeReduction       = 0.8
	PlanMonthlyPrice    = 49
	MonthsPerYear       = 12

	// CostPerYear is the reference plan price over a year.
	CostPerYear = PlanMonthlyPrice * MonthsPerYear
)

// Inputs are the daily time costs of admin work plus the value of an hour.
type Inputs struct {
	MinutesUpdates  float64 `json:"minutes_updates"`
	MinutesBookings float64 `json:"minutes_bookings"`
	MinutesPayments float64 `json:"minutes_payments"`
	HourlyRate      float64 `json:"hourly_rate"`
}

// Results are derived from Inputs and never set directly.
type Results struct {
	TotalMinutesPerDay float64 `json:"total_minutes_per_day"`
	HoursPerWeek       float64 `json:"hours_per_week"`
	HoursPerYear       float64 `json:"hours_per_year"`
	SavedHoursPerWeek  float64 `json:"saved_hours_per_week"`
	SavedHoursPerYear  float64 `json:"saved_hours_per_year"`
	SavedMoneyPerYear  float64 `json:"saved_money_per_year"`
	CostPerYear        float64 `json:"cost_per_year"`
	ROI                float64 `json:"roi"`
}

// DefaultInputs are the values the landing page calculator starts with.
var DefaultInputs = Inputs{
	MinutesUpdates:  45,
	MinutesBookings: 20,
	MinutesPayments: 15,
	HourlyRate:      20,
}

// Compute derives Results from in. It never fails: NaN, infinite and
// negative inputs count as zero.
func Compute(in Inputs) Results {
	in = in.Sanitize()

	total := in.MinutesUpdates + in.MinutesBookings + in.MinutesPayments
	hoursPerWeek := math.Round(total*WorkingDaysPerWeek/60*10) / 10
	hoursPerYear := math.Round(hoursPerWeek * WorkingWeeksPerYear)
	savedPerWeek := math.Round(hoursPerWeek*TimeReduction*10) / 10
	savedPerYear := math.Round(savedPerWeek * WorkingWeeksPerYear)
	savedMoney := math.Round(savedPerYear * in.HourlyRate)
	cost := float64(CostPerYear)

	return Results{
		TotalMinutesPerDay: total,
		HoursPerWeek:       hoursPerWeek,
		HoursPerYear:       hoursPerYear,
		SavedHoursPerWeek:  savedPerWeek,
		SavedHoursPerYear:  savedPerYear,
		SavedMoneyPerYear:  savedMoney,
		CostPerYear:        cost,
		ROI:                math.Round(((savedMoney - cost) / cost) * 100),
	}
}

// Sanitize returns a copy of in with every unusable value replaced by zero.
func (in Inputs) Sanitize() Inputs {
	return Inputs{
		MinutesUpdates:  clamp(in.MinutesUpdates),
		MinutesBookings: clamp(in.MinutesBookings),
		MinutesPayments: clamp(in.MinutesPayments),
		HourlyRate:      clamp(in.HourlyRate),
	}
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	return v
}
