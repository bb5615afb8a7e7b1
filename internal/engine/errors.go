package engine

import "errors"

var (
	ErrSessionAlreadyOpen    = errors.New("session already open")
	ErrSessionNotOpen        = errors.New("no session open")
	ErrCurrencyNotSettled    = errors.New("session closed with unsettled deltas")
	ErrInsufficientClaims    = errors.New("insufficient claim balance")
	ErrNativeValueMismatch   = errors.New("native value supplied for non-native settlement")
	ErrPoolNotDynamic        = errors.New("pool does not use a dynamic fee")
	ErrCollectExceedsAccrued = errors.New("collect amount exceeds accrued protocol fees")
)
