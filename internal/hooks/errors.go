package hooks

import "errors"

var (
	ErrHookAddressInvalid         = errors.New("hook address has no registered collaborator")
	ErrHookPermissionsInvalid     = errors.New("hook permission record inconsistent")
	ErrHookResponseInvalid        = errors.New("hook returned wrong response marker")
	ErrHookCallFailed             = errors.New("hook call failed")
	ErrHookDeltaExceedsSwapAmount = errors.New("hook delta exceeds swap amount")
)
