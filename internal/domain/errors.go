package domain

import "errors"

var (
	ErrInvalidWindow       = errors.New("invalid time window")
	ErrListingUnavailable  = errors.New("listing unavailable")
	ErrUnparseableRecord   = errors.New("unparseable record")
	ErrAmbiguousResolution = errors.New("ambiguous resolution")
	ErrBalanceQueryFailed  = errors.New("balance query failed")
	ErrNotFound            = errors.New("not found")
	ErrLockHeld            = errors.New("lock already held")
)
