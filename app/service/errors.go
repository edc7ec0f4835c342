package service

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrProviderUnsupported = errors.New("provider is not supported")
	ErrCallbackRejected    = errors.New("callback rejected")
	ErrDuplicateCallback   = errors.New("callback already processed")
)
