package domain

import "errors"

var (
	// ErrIndexOutOfRange is returned when a queue position does not exist.
	ErrIndexOutOfRange = errors.New("queue position out of range")

	// ErrEmptyQueue is returned when an operation needs at least one pending entry.
	ErrEmptyQueue = errors.New("the queue is empty")
)
