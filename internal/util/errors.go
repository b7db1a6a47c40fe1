package util

import "fmt"

// MyResponseError carries an explicit HTTP status for failures raised in the
// controller layer, where no service sentinel applies.
type MyResponseError struct {
	Msg    string
	Status int
}

func (e MyResponseError) Error() string { return e.Msg }

func NewResponseError(status int, format string, args ...any) error {
	return MyResponseError{
		Msg:    fmt.Sprintf(format, args...),
		Status: status,
	}
}
