// File: channel/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package channel

import "errors"

var (
	// ErrClosed reports that the peer side is gone: the receiver for a
	// send, every sender (and the buffer drained) for a receive.
	ErrClosed = errors.New("channel: closed")

	// ErrFull is returned by TrySend when the bounded buffer is at
	// capacity or suspended senders are already queued.
	ErrFull = errors.New("channel: full")

	// ErrEmpty is returned by TryRecv when nothing is buffered.
	ErrEmpty = errors.New("channel: empty")
)
