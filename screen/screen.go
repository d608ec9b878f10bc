// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package screen defines the asynchronous contract between a display
// driver and its users.
//
// A driver has two kinds of users: the data path (frame writes, handed a
// buffer whose ownership moves for the duration of the operation) and the
// setup path (one-shot configuration commands such as rotation or
// brightness). Each registers its own client interface and receives only
// its own completions.
package screen

// Client receives data-path completions from a display driver.
type Client interface {
	// ScreenIsReady is called once, after the driver finished its power-on
	// and init sequence and can accept operations.
	ScreenIsReady()
	// WriteComplete returns the pixel buffer passed to Write, in the
	// caller's ownership again. err is nil on success.
	WriteComplete(buf []byte, err error)
	// CommandComplete reports a finished data-path command that did not
	// move a buffer, such as a fill.
	CommandComplete(err error)
}

// SetupClient receives setup-path completions from a display driver.
type SetupClient interface {
	CommandComplete(err error)
}

// PixelFormat describes the wire encoding of one pixel.
type PixelFormat uint8

const (
	// RGB565 is 16 bits per pixel, red in the top 5 bits, transferred
	// most significant byte first.
	RGB565 PixelFormat = iota
	// Mono is 1 bit per pixel.
	Mono
)

// BitsPerPixel returns the storage size of one pixel.
func (f PixelFormat) BitsPerPixel() int {
	switch f {
	case RGB565:
		return 16
	case Mono:
		return 1
	}
	return 0
}

// Rotation is the orientation of the frame relative to the panel's
// native scan direction, in clockwise steps.
type Rotation uint8

const (
	Normal Rotation = iota
	Rotated90
	Rotated180
	Rotated270
)
