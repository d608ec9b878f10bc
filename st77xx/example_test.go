// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package st77xx_test

import (
	"image"
	"image/draw"
	"log"

	"github.com/benbjohnson/clock"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
	"periph.io/x/virtdev/hostbus"
	"periph.io/x/virtdev/image565"
	"periph.io/x/virtdev/spimux"
	"periph.io/x/virtdev/st77xx"
	"periph.io/x/virtdev/vbus"
)

// waiter bridges the driver's callbacks to channels so the example can
// block on them.
type waiter struct {
	ready  chan struct{}
	writes chan []byte
	cmds   chan error
}

func (w *waiter) ScreenIsReady() { close(w.ready) }

func (w *waiter) WriteComplete(buf []byte, err error) {
	if err != nil {
		log.Fatal(err)
	}
	w.writes <- buf
}

func (w *waiter) CommandComplete(err error) {
	if err != nil {
		log.Fatal(err)
	}
	w.cmds <- err
}

func Example() {
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	port, err := spireg.Open("")
	if err != nil {
		log.Fatal(err)
	}
	defer port.Close()

	// One SPI controller shared through the mux; the display is one
	// chip-selected device on it.
	m := spimux.NewMux(hostbus.NewSPI(port))
	csLCD := spimux.NewDev(m, gpioreg.ByName("GPIO8"), spi.Mode0, 16*physic.MegaHertz)
	csLCD.AddToMux()

	bus := vbus.NewSPIMasterBus(csLCD)
	bus.SetReadWriteBuffer(make([]byte, 64))

	dev, err := st77xx.New(bus, hostbus.NewAlarm(clock.New()), gpioreg.ByName("GPIO27"), &st77xx.Opts{
		Panel: st77xx.ST7789H2,
	})
	if err != nil {
		log.Fatal(err)
	}
	w := &waiter{
		ready:  make(chan struct{}),
		writes: make(chan []byte, 1),
		cmds:   make(chan error, 1),
	}
	dev.SetClient(w)
	if err := dev.Init(); err != nil {
		log.Fatal(err)
	}
	<-w.ready

	// Render a greeting with a TrueType face.
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		log.Fatal(err)
	}
	width, height := dev.Resolution()
	ctx := gg.NewContext(width, height)
	ctx.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: 28}))
	ctx.SetRGB(0, 0, 0)
	ctx.Clear()
	ctx.SetRGB(0, 1, 0)
	ctx.DrawStringAnchored("Hello from periph!", float64(width)/2, float64(height)/2, 0.5, 0.5)

	// Convert to the panel's wire format and stream it.
	frame := image565.New(image.Rect(0, 0, width, height))
	draw.Draw(frame, frame.Rect, ctx.Image(), image.Point{}, draw.Src)

	if err := dev.SetWriteFrame(0, 0, width, height); err != nil {
		log.Fatal(err)
	}
	<-w.cmds
	if err := dev.Write(frame.Pix, len(frame.Pix)); err != nil {
		log.Fatal(err)
	}
	<-w.writes
}
