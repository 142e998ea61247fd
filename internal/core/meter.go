package core

// MeterStatus is how far this month's savings are from the monthly target.
type MeterStatus string

const (
	MeterHit      MeterStatus = "hit"
	MeterHalfway  MeterStatus = "halfway"
	MeterBehind   MeterStatus = "behind"
	MeterNoTarget MeterStatus = "no_target"
)

// Meter is the monthly happiness meter: savings against the expected monthly amount.
type Meter struct {
	Fraction float64
	Status   MeterStatus
}

// MonthlyMeter compares current savings with the expected monthly savings.
func MonthlyMeter(target, current Money) Meter {
	if target.Cents <= 0 {
		return Meter{Fraction: 0, Status: MeterNoTarget}
	}
	m := Meter{Fraction: clampFraction(ratio(current, target))}
	switch {
	case current.Cents >= target.Cents:
		m.Fraction = 1
		m.Status = MeterHit
	case current.Cents*2 >= target.Cents:
		m.Status = MeterHalfway
	default:
		m.Status = MeterBehind
	}
	return m
}

func (m Meter) Percent() string {
	return formatPercent(m.Fraction)
}

func (m Meter) BarWidth() int {
	return barWidth(m.Fraction)
}

// Tone is the notification style matching the status.
func (m Meter) Tone() string {
	switch m.Status {
	case MeterHit:
		return "success"
	case MeterHalfway:
		return "info"
	default:
		return "warning"
	}
}

func (m Meter) Message() string {
	switch m.Status {
	case MeterHit:
		return "🎉 You hit or exceeded this month's savings target!"
	case MeterHalfway:
		return "🙂 You're halfway to your monthly target."
	case MeterBehind:
		return "😕 Behind this month's target, keep going!"
	default:
		return "Set your expected monthly savings to track this month."
	}
}
