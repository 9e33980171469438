package model

import "errors"

// Record construction errors.
var (
	// ErrEmptyUsername is returned when a ban row has no username.
	ErrEmptyUsername = errors.New("ban record: empty username")

	// ErrEmptyURL is returned when an evidence record has no URL.
	ErrEmptyURL = errors.New("evidence record: empty url")

	// ErrEmptyText is returned when an evidence record has no text.
	ErrEmptyText = errors.New("evidence record: empty text")
)
