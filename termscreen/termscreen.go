// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package termscreen emulates an ST77XX-family display controller on the
// terminal using ANSI color codes.
//
// It implements vbus.Bus and decodes the family's window commands: CASET
// (0x2A) and RASET (0x2B) set the write window, RAMWR (0x2C) streams
// big-endian RGB565 pixels into it. Every operation completes
// synchronously before the call returns. The frame is rendered each time
// a write window fills up; call Flush to show a partial frame.
//
// Useful while you are waiting for your super nice 240x240 TFT to come by
// mail.
package termscreen

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/virtdev"
	"periph.io/x/virtdev/image565"
	"periph.io/x/virtdev/vbus"
)

// Opts represents the options available for this display.
type Opts struct {
	W, H int
	// Writer receives the rendered frames. Defaults to a colorable stdout.
	Writer io.Writer
	// Palette maps pixels to terminal colors. Defaults to ansi256.Default.
	Palette *ansi256.Palette

	_ struct{}
}

// Command opcodes decoded by the emulator.
const (
	opCASET = 0x2A
	opRASET = 0x2B
	opRAMWR = 0x2C
)

// Dev is a TFT emulator that renders to the console.
type Dev struct {
	w       io.Writer
	palette ansi256.Palette
	img     *image565.Image

	client vbus.Client
	cmd    uint

	// Current write window and the streaming cursor inside it.
	x0, x1 int
	y0, y1 int
	cx, cy int

	buf bytes.Buffer
}

// New returns a Dev that displays at the console.
//
// Permits to do local testing of display drivers and animations.
func New(opts *Opts) *Dev {
	w := opts.Writer
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	return &Dev{
		w:       w,
		palette: *p,
		img:     image565.New(image.Rect(0, 0, opts.W, opts.H)),
		x1:      opts.W - 1,
		y1:      opts.H - 1,
	}
}

func (d *Dev) String() string {
	b := d.img.Bounds()
	return fmt.Sprintf("TermScreen{%dx%d}", b.Dx(), b.Dy())
}

// Image exposes the emulated frame for inspection.
func (d *Dev) Image() *image565.Image {
	return d.img
}

// Halt implements conn.Resource.
//
// It resets the terminal colors so the shell is not corrupted.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

// SetAddr implements vbus.Bus. The address byte is the command opcode.
func (d *Dev) SetAddr(w vbus.Width, addr uint) error {
	if w != vbus.Bits8 {
		return virtdev.Unsupported
	}
	d.cmd = addr
	if d.client != nil {
		d.client.CommandComplete(nil, 0)
	}
	return nil
}

// Write implements vbus.Bus, consuming the current command's parameters.
// The frame is rendered before the completion callback fires, so a
// reentrant client never observes a stale terminal.
func (d *Dev) Write(w vbus.Width, buf []byte, n int) error {
	nb := n * w.Bytes()
	if len(buf) < nb {
		return virtdev.NoMem
	}
	var err error
	switch d.cmd {
	case opCASET:
		if nb >= 4 {
			d.x0 = int(buf[0])<<8 | int(buf[1])
			d.x1 = int(buf[2])<<8 | int(buf[3])
			d.cx = d.x0
		}
	case opRASET:
		if nb >= 4 {
			d.y0 = int(buf[0])<<8 | int(buf[1])
			d.y1 = int(buf[2])<<8 | int(buf[3])
			d.cy = d.y0
		}
	case opRAMWR:
		if d.paint(buf[:nb]) {
			err = d.refresh()
		}
	}
	if d.client != nil {
		d.client.CommandComplete(buf, n)
	}
	return err
}

// Read implements vbus.Bus. The emulated controller is write-only.
func (d *Dev) Read(w vbus.Width, buf []byte, n int) error {
	return virtdev.Unsupported
}

// SetClient implements vbus.Bus.
func (d *Dev) SetClient(c vbus.Client) {
	d.client = c
}

// paint streams pixel bytes into the write window, wrapping the cursor at
// the window's right edge the way the real controller does. It reports
// whether this write filled the window, which is when the frame gets
// rendered; Flush shows partially written windows.
func (d *Dev) paint(data []byte) bool {
	filled := false
	for i := 0; i+1 < len(data); i += 2 {
		if d.cy > d.y1 {
			break
		}
		if (image.Point{d.cx, d.cy}).In(d.img.Rect) {
			c := image565.RGB565(uint16(data[i])<<8 | uint16(data[i+1]))
			d.img.SetRGB565(d.cx, d.cy, c)
		}
		d.cx++
		if d.cx > d.x1 {
			d.cx = d.x0
			d.cy++
			if d.cy > d.y1 {
				filled = true
			}
		}
	}
	return filled
}

// Flush renders the current frame to the terminal.
func (d *Dev) Flush() error {
	return d.refresh()
}

func (d *Dev) refresh() error {
	// This code is designed to minimize the amount of memory allocated per
	// call.
	d.buf.Reset()
	_, _ = d.buf.WriteString("\033[H\033[0m")
	b := d.img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			_, _ = io.WriteString(&d.buf, d.palette.Block(color.NRGBAModel.Convert(d.img.At(x, y)).(color.NRGBA)))
		}
		_, _ = d.buf.WriteString("\033[0m\n")
	}
	_, err := d.buf.WriteTo(d.w)
	return err
}

var _ vbus.Bus = &Dev{}
var _ fmt.Stringer = &Dev{}
