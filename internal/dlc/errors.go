package dlc

import "errors"

var (
	ErrNotFound          = errors.New("dlc: connection not found")
	ErrDuplicateMCI      = errors.New("dlc: duplicate connection identity")
	ErrDuplicateMCEI     = errors.New("dlc: duplicate mcei")
	ErrExhausted         = errors.New("dlc: connection table exhausted")
	ErrStateViolation    = errors.New("dlc: state violation")
	ErrRefcountUnderflow = errors.New("dlc: unbind of unreferenced connection")
	ErrUnmappedChannel   = errors.New("dlc: unmapped data channel")
	ErrDestroyed         = errors.New("dlc: connection destroyed")
)
