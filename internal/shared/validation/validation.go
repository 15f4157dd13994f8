package validation

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	seatNoPattern   = regexp.MustCompile(`^[0-9]{1,3}[A-Za-z]$`)
	flightIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]{0,31}$`)
)

// New returns a validator with the reservation tags registered:
//
//	seatno    row number followed by a seat letter, e.g. 12A
//	flightid  letters, digits and dashes, up to 32 characters
func New() *validator.Validate {
	v := validator.New()
	// Only fails on a duplicate tag name or an empty tag.
	_ = v.RegisterValidation("seatno", isSeatNo)
	_ = v.RegisterValidation("flightid", isFlightID)
	return v
}

func isSeatNo(fl validator.FieldLevel) bool {
	return seatNoPattern.MatchString(fl.Field().String())
}

func isFlightID(fl validator.FieldLevel) bool {
	return flightIDPattern.MatchString(fl.Field().String())
}
