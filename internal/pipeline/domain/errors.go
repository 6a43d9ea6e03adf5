package domain

import "errors"

// ErrInvalidTransition marks a rejected stage move. It is wrapped in the
// typed application error surfaced to callers, and lets the state machine
// tell a structurally invalid move apart from a concurrency conflict when
// deciding whether to retry.
var ErrInvalidTransition = errors.New("stage transition not allowed")
