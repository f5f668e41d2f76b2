package helpers

import (
	"math"
)

func ToFixed(num float64, precision int) float64 {
	pow := math.Pow(10, float64(precision))
	var rounded float64
	if num < 0 {
		rounded = num*pow - 0.5
	} else {
		rounded = num*pow + 0.5
	}
	truncated := math.Trunc(rounded)
	return truncated / pow
}
