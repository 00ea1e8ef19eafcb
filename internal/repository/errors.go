package repository

import "errors"

var ErrInvalid = errors.New("invalid input")
