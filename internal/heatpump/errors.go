package heatpump

import "errors"

var (
	ErrInvalidTemperatureRange = errors.New("indoor temperature must exceed outdoor temperature")
	ErrInvalidParameter        = errors.New("invalid parameter")
	ErrInvalidRange            = errors.New("invalid temperature sweep range")
	ErrInvalidRating           = errors.New("invalid rating")
)
