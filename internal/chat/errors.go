package chat

import "errors"

var (
	// ErrEmptyMessage rejects a send whose body is empty or whitespace.
	// Checked before any I/O is attempted.
	ErrEmptyMessage = errors.New("message body is empty")

	// ErrNoIdentity rejects operations that need a logged-in user.
	ErrNoIdentity = errors.New("no current user identity")

	// ErrNoReceiver rejects a send without a receiver id.
	ErrNoReceiver = errors.New("no receiver selected")
)
