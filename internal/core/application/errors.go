package application

import "errors"

var (
	// ErrUnauthorizedRole is thrown when the local identity attempts an
	// operation reserved to another trade participant.
	ErrUnauthorizedRole = errors.New("operation not allowed for the local role")
	// ErrTradeTerminal is thrown when operating on a completed or canceled
	// trade.
	ErrTradeTerminal = errors.New("trade has reached a terminal status")
)
