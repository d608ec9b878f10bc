// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package termscreen_test

import (
	"log"
	"os"

	"github.com/benbjohnson/clock"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/virtdev/hostbus"
	"periph.io/x/virtdev/st77xx"
	"periph.io/x/virtdev/termscreen"
)

type ready chan struct{}

func (r ready) ScreenIsReady()                      { close(r) }
func (r ready) WriteComplete(buf []byte, err error) {}
func (r ready) CommandComplete(err error)           {}

// Drives the display driver against the in-terminal emulator instead of
// real hardware. Useful to eyeball initialization sequences and frame
// content without a panel on hand.
func Example() {
	term := termscreen.New(&termscreen.Opts{W: 32, H: 16, Writer: os.Stdout})
	defer term.Halt()

	dev, err := st77xx.New(term, hostbus.NewAlarm(clock.New()), &gpiotest.Pin{N: "RST"}, &st77xx.Opts{
		Panel: st77xx.ST7789H2,
	})
	if err != nil {
		log.Fatal(err)
	}
	r := make(ready)
	dev.SetClient(r)
	if err := dev.Init(); err != nil {
		log.Fatal(err)
	}
	<-r

	// The emulator is smaller than the panel; writes outside it are clipped.
	if err := dev.Fill(0x07E0); err != nil {
		log.Fatal(err)
	}
	term.Flush()
}
