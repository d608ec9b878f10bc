// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package vbus normalizes heterogeneous addressed transports behind one
// request/response protocol.
//
// A Bus exposes set-address, write and read with an explicit data width,
// hiding whether the transport underneath is I²C (implicit register
// addressing) or SPI (command byte on the wire). Completion is always
// reported asynchronously through the registered Client, even when the
// transport finishes synchronously.
//
// A Bus carries no queue: exactly one transaction may be outstanding per
// adapter instance, and callers are trusted to serialize. Arbitration among
// multiple clients belongs to the mux layer below (i2cmux, spimux).
package vbus

// Width encodes how many bytes one data item occupies on the wire, and for
// multi-byte items, the order the caller pre-encoded them in. It only ever
// multiplies counts: payload bytes are transmitted exactly as given, never
// reordered.
type Width uint8

// Supported data widths.
const (
	Bits8 Width = iota
	Bits16LE
	Bits16BE
	Bits32LE
	Bits32BE
	Bits64LE
	Bits64BE
)

// Bytes returns the size of one data item in bytes.
func (w Width) Bytes() int {
	switch w {
	case Bits8:
		return 1
	case Bits16LE, Bits16BE:
		return 2
	case Bits32LE, Bits32BE:
		return 4
	default:
		return 8
	}
}

// Bus is the protocol-agnostic transport interface.
//
// Every call returns nil for "accepted, completion will arrive via the
// Client" or a virtdev.Code for an immediate rejection; on rejection the
// buffer never leaves the caller's ownership.
type Bus interface {
	// SetAddr selects the address (or injects the command byte) that the
	// following Write or Read applies to. Only Bits8 addresses are
	// supported; anything else fails with virtdev.Unsupported.
	SetAddr(w Width, addr uint) error
	// Write transmits n items of width w from buf. buf must hold at least
	// n*w.Bytes() bytes or the call fails with virtdev.NoMem.
	Write(w Width, buf []byte, n int) error
	// Read receives n items of width w into buf, with the same capacity
	// rule as Write.
	Read(w Width, buf []byte, n int) error
	SetClient(c Client)
}

// Client receives Bus completions. After SetAddr, buf is nil and n is 0:
// the address was consumed internally. After Write or Read, buf is the
// caller's buffer, returned exactly once, and n is the number of data items
// transferred; n == 0 signals that the transfer failed at the device level.
type Client interface {
	CommandComplete(buf []byte, n int)
}

type busStatus uint8

const (
	statusIdle busStatus = iota
	statusSetAddress
	statusWrite
	statusRead
)
