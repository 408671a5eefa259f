package domain

import "errors"

var (
	ErrInsufficientData         = errors.New("insufficient data")
	ErrDivisionByZero           = errors.New("division by zero")
	ErrConfigurationInvalid     = errors.New("configuration invalid")
	ErrSimulationNonDeterminism = errors.New("monte carlo simulation requires an explicit seed")
)
