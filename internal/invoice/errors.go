package invoice

import "errors"

var (
	ErrNotFound   = errors.New("invoice not found")
	ErrValidation = errors.New("invalid request")
	ErrGateway    = errors.New("payment gateway error")
)
