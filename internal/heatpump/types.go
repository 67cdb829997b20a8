package heatpump

import "fmt"

// Rating is an integer enum grading a realistic COP.
type Rating int

const (
	RatingUnknown Rating = iota
	RatingPoor
	RatingFair
	RatingGood
)

const (
	GoodCOPThreshold = 3.5
	FairCOPThreshold = 2.5
)

func RateCOP(cop float64) Rating {
	switch {
	case cop >= GoodCOPThreshold:
		return RatingGood
	case cop >= FairCOPThreshold:
		return RatingFair
	default:
		return RatingPoor
	}
}

func (r Rating) Valid() bool {
	return r == RatingPoor || r == RatingFair || r == RatingGood
}

func (r Rating) String() string {
	switch r {
	case RatingPoor:
		return "poor"
	case RatingFair:
		return "fair"
	case RatingGood:
		return "good"
	default:
		return "unknown"
	}
}

func ParseRating(s string) (Rating, error) {
	switch s {
	case "poor":
		return RatingPoor, nil
	case "fair":
		return RatingFair, nil
	case "good":
		return RatingGood, nil
	default:
		return RatingUnknown, fmt.Errorf("%w: %q", ErrInvalidRating, s)
	}
}
