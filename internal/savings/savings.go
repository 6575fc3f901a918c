package savings

import "fmt"

// Multipliers converting saved energy into display equivalents. They are
// presentation constants only.
const (
	MinEnergyKWh = 0.001
	MaxEnergyKWh = 0.01

	BottlesPerKWh = 1.44
	TreesPerKWh   = 0.0177
	MilesPerKWh   = 2
)

// Rand is a source of uniform values in [0,1). *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// Increment is the savings attributed to a single successful reply.
type Increment struct {
	EnergyKWh    float64 `json:"energy_kwh" yaml:"energy_kwh"`
	WaterBottles float64 `json:"water_bottles" yaml:"water_bottles"`
	Trees        float64 `json:"trees" yaml:"trees"`
	Miles        float64 `json:"miles" yaml:"miles"`
}

// Totals are the running savings of a session. Every field only grows.
type Totals struct {
	EnergyKWh    float64 `json:"energy_kwh" yaml:"energy_kwh"`
	WaterBottles float64 `json:"water_bottles" yaml:"water_bottles"`
	Trees        float64 `json:"trees" yaml:"trees"`
	Miles        float64 `json:"miles" yaml:"miles"`
	Replies      int     `json:"replies" yaml:"replies"`
}

// Sample draws one increment: energy uniform in [MinEnergyKWh, MaxEnergyKWh]
// and the other three fields derived from it.
func Sample(r Rand) Increment {
	e := MinEnergyKWh + r.Float64()*(MaxEnergyKWh-MinEnergyKWh)
	return FromEnergy(e)
}

// FromEnergy derives a full increment from an energy value.
func FromEnergy(e float64) Increment {
	return Increment{
		EnergyKWh:    e,
		WaterBottles: e * BottlesPerKWh,
		Trees:        e * TreesPerKWh,
		Miles:        e * MilesPerKWh,
	}
}

// Add returns t with inc applied. Negative components are ignored so the
// totals can never decrease.
func (t Totals) Add(inc Increment) Totals {
	t.EnergyKWh += nonNegative(inc.EnergyKWh)
	t.WaterBottles += nonNegative(inc.WaterBottles)
	t.Trees += nonNegative(inc.Trees)
	t.Miles += nonNegative(inc.Miles)
	t.Replies++
	return t
}

// Lines renders the totals for display, one metric per line.
func (t Totals) Lines() []string {
	return []string{
		fmt.Sprintf("Energy saved: %.4f kWh", t.EnergyKWh),
		fmt.Sprintf("Water bottles: %.4f", t.WaterBottles),
		fmt.Sprintf("Trees planted: %.5f", t.Trees),
		fmt.Sprintf("Miles not driven: %.4f", t.Miles),
	}
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
