package booking

import "errors"

// RateType says how a service is priced.
type RateType string

const (
	RateHourly RateType = "HOURLY"
	RateFlat   RateType = "FLAT"
)

var (
	ErrNoServices      = errors.New("at least one service is required")
	ErrInvalidDuration = errors.New("invalid booking duration")
	ErrUnknownRateType = errors.New("unknown rate type")
	// ErrServiceNotOffered is returned when a requested performer does not
	// offer one of the requested services.
	ErrServiceNotOffered = errors.New("service not offered by performer")
)

// PricedService is the subset of a catalog service the calculator needs.
type PricedService struct {
	ID                 uint64
	RateCents          int64
	RateType           RateType
	MinDurationMinutes int
}

// Rates are the platform percentages in basis points.
type Rates struct {
	DepositBps     int
	ReferralFeeBps int
}

// Cost is the derived price of a booking.  All values are cents.
type Cost struct {
	PerPerformerCents int64 `json:"per_performer_cents"`
	PerformerCount    int   `json:"performer_count"`
	TotalCents        int64 `json:"total_cents"`
	DepositCents      int64 `json:"deposit_cents"`
	ReferralFeeCents  int64 `json:"referral_fee_cents"`
	BalanceDueCents   int64 `json:"balance_due_cents"`
}

// CalculateCost prices a booking of durationMinutes for performerCount
// performers.  Hourly services are charged pro rata per minute, flat
// services once per performer.  Every division rounds half up to the cent.
func CalculateCost(services []PricedService, durationMinutes, performerCount int, rates Rates) (Cost, error) {
	if len(services) == 0 {
		return Cost{}, ErrNoServices
	}
	if durationMinutes <= 0 {
		return Cost{}, ErrInvalidDuration
	}
	if performerCount < 1 {
		performerCount = 1
	}

	var per int64
	for _, s := range services {
		if s.MinDurationMinutes > 0 && durationMinutes < s.MinDurationMinutes {
			return Cost{}, ErrInvalidDuration
		}
		switch s.RateType {
		case RateHourly:
			per += divRound(s.RateCents*int64(durationMinutes), 60)
		case RateFlat:
			per += s.RateCents
		default:
			return Cost{}, ErrUnknownRateType
		}
	}

	total := per * int64(performerCount)
	deposit := divRound(total*int64(rates.DepositBps), 10000)
	return Cost{
		PerPerformerCents: per,
		PerformerCount:    performerCount,
		TotalCents:        total,
		DepositCents:      deposit,
		ReferralFeeCents:  divRound(total*int64(rates.ReferralFeeBps), 10000),
		BalanceDueCents:   total - deposit,
	}, nil
}

// divRound divides non-negative n by d rounding half up.
func divRound(n, d int64) int64 {
	return (n + d/2) / d
}
