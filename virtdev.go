// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package virtdev

// Code is a status code returned synchronously by virtual devices and
// muxes. It is a string newtype, comparable, allocation-free, and
// implements error. Success is a nil error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes.
const (
	// Busy means the operation was rejected because this client or this mux
	// already has work outstanding. Requests are never queued at the layer
	// that returns Busy; the caller must retry.
	Busy Code = "busy"
	// NoMem means a buffer or sequence buffer is too small or absent.
	// Ownership of any buffer passed in stays with the caller.
	NoMem Code = "buffer too small"
	// Unsupported means the requested width or mode is not implemented by
	// this adapter or panel.
	Unsupported Code = "not supported"
	// Invalid means a coordinate or parameter is out of range.
	Invalid Code = "invalid parameter"
	// Off means the operation requires a powered-on state that has not been
	// reached yet.
	Off Code = "device is off"
	// NoDevice means a channel index is out of range.
	NoDevice Code = "no such device"
	// NoAck is the asynchronous I²C error for an unacknowledged transfer,
	// delivered through completion callbacks.
	NoAck Code = "no acknowledge"
	// Fault is a generic asynchronous hardware failure.
	Fault Code = "hardware fault"
)
