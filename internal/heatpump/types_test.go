package heatpump

import "testing"

func TestRateCOP(t *testing.T) {
	cases := []struct {
		cop  float64
		want Rating
	}{
		{0, RatingPoor},
		{2.49, RatingPoor},
		{2.5, RatingFair},
		{3.49, RatingFair},
		{3.5, RatingGood},
		{5.863, RatingGood},
	}
	for _, tc := range cases {
		if got := RateCOP(tc.cop); got != tc.want {
			t.Fatalf("RateCOP(%v)=%v want %v", tc.cop, got, tc.want)
		}
	}
}

func TestRatingValid(t *testing.T) {
	cases := []struct {
		r    Rating
		want bool
	}{
		{RatingUnknown, false},
		{RatingPoor, true},
		{RatingFair, true},
		{RatingGood, true},
		{Rating(999), false},
	}
	for _, tc := range cases {
		if got := tc.r.Valid(); got != tc.want {
			t.Fatalf("Rating(%d).Valid()=%v want %v", tc.r, got, tc.want)
		}
	}
}

func TestRatingString_Table(t *testing.T) {
	cases := []struct {
		name string
		in   Rating
		want string
	}{
		{"unknown (zero)", RatingUnknown, "unknown"},
		{"poor", RatingPoor, "poor"},
		{"fair", RatingFair, "fair"},
		{"good", RatingGood, "good"},
		{"unknown (out of range)", Rating(999), "unknown"},
		{"unknown (negative)", Rating(-1), "unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.String(); got != tc.want {
				t.Fatalf("Rating(%d).String()=%q want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseRating_Table(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    Rating
		wantErr bool
	}{
		{"poor", "poor", RatingPoor, false},
		{"fair", "fair", RatingFair, false},
		{"good", "good", RatingGood, false},
		{"invalid", "great", RatingUnknown, true},
		{"empty", "", RatingUnknown, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseRating(tc.in)
			if tc.wantErr {
				assertErrorIs(t, err, ErrInvalidRating)
			} else if err != nil {
				t.Fatalf("ParseRating(%q) unexpected error: %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("ParseRating(%q)=%v want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestUnitConversionRoundTrip(t *testing.T) {
	for _, c := range []float64{-40, -15, 0, 20, 55} {
		if got := KelvinToCelsius(CelsiusToKelvin(c)); !almostEqual(got, c, 1e-9) {
			t.Fatalf("round trip of %v°C gave %v", c, got)
		}
	}
	if CelsiusToKelvin(20) != 293.15 {
		t.Fatalf("CelsiusToKelvin(20) = %v", CelsiusToKelvin(20))
	}
}
