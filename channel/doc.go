// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package channel provides asynchronous many-senders/one-receiver
// message passing integrated with the scheduler's wake path.
//
// The bounded variant owns a fixed-capacity ring buffer plus an
// ordered sender waiter list: sends beyond capacity suspend and
// resume in FIFO order as the receiver frees slots. The unbounded
// variant never suspends a sender. Both preserve send order to the
// single logical receiver; multiple receiver handles are not
// supported. Dropping the last sender lets the receiver drain what is
// buffered and then observe ErrClosed; dropping the receiver fails
// every subsequent send immediately.
package channel
