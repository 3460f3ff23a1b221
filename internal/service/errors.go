package service

import "errors"

var ErrUnknownCommodity = errors.New("unknown commodity")
