// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hostbus

import (
	"bytes"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spitest"
	"periph.io/x/virtdev"
)

type i2cCompletion struct {
	buf []byte
	err error
}

type i2cWaiter struct {
	ch chan i2cCompletion
}

func (w *i2cWaiter) CommandComplete(buf []byte, err error) {
	w.ch <- i2cCompletion{buf, err}
}

func TestI2C(t *testing.T) {
	bus := i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x42, W: []byte{1, 2}},
			{Addr: 0x42, R: []byte{9, 8}},
			{Addr: 0x42, W: []byte{0x10}, R: []byte{5, 6}},
		},
	}
	h := NewI2C(&bus)
	w := &i2cWaiter{ch: make(chan i2cCompletion)}
	h.SetClient(w)

	buf := []byte{1, 2}
	if err := h.Write(0x42, buf, 2); err != nil {
		t.Fatal(err)
	}
	done := <-w.ch
	if done.err != nil || &done.buf[0] != &buf[0] {
		t.Fatalf("write completion = %+v", done)
	}

	if err := h.Read(0x42, buf, 2); err != nil {
		t.Fatal(err)
	}
	done = <-w.ch
	if done.err != nil || !bytes.Equal(done.buf, []byte{9, 8}) {
		t.Fatalf("read completion = %+v", done)
	}

	// Combined transaction: the read bytes land at the head of the buffer.
	buf = []byte{0x10, 0xAA}
	if err := h.WriteRead(0x42, buf, 1, 2); err != nil {
		t.Fatal(err)
	}
	done = <-w.ch
	if done.err != nil || !bytes.Equal(done.buf, []byte{5, 6}) {
		t.Fatalf("write-read completion = %+v", done)
	}

	if err := h.Write(0x42, buf, 5); err != virtdev.NoMem {
		t.Fatalf("oversized write err = %v, want NoMem", err)
	}
	if err := h.Halt(); err != nil {
		t.Fatal(err)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

type spiWaiter struct {
	ch chan int
}

func (w *spiWaiter) ReadWriteDone(wb, r []byte, n int) {
	w.ch <- n
}

func TestSPI(t *testing.T) {
	pb := &spitest.Playback{
		Playback: conntest.Playback{
			Ops: []conntest.IO{{W: []byte{1, 2, 3}, R: []byte{4, 5, 6}}},
		},
	}
	h := NewSPI(pb)
	w := &spiWaiter{ch: make(chan int)}
	h.SetClient(w)

	if err := h.ReadWriteBytes([]byte{1}, nil, 1); err != virtdev.Off {
		t.Fatalf("transfer before configure err = %v, want Off", err)
	}
	if err := h.Configure(spi.Mode0, physic.MegaHertz); err != nil {
		t.Fatal(err)
	}
	r := make([]byte, 3)
	if err := h.ReadWriteBytes([]byte{1, 2, 3}, r, 3); err != nil {
		t.Fatal(err)
	}
	if n := <-w.ch; n != 3 {
		t.Fatalf("n = %d, want 3", n)
	}
	if !bytes.Equal(r, []byte{4, 5, 6}) {
		t.Fatalf("r = %v, want shifted-in bytes", r)
	}
	if err := h.ReadWriteBytes([]byte{1}, make([]byte, 0), 1); err != virtdev.NoMem {
		t.Fatalf("short read buffer err = %v, want NoMem", err)
	}
	if err := h.Halt(); err != nil {
		t.Fatal(err)
	}
}

type pwmPin struct {
	gpiotest.Pin
	duty gpio.Duty
	freq physic.Frequency
}

func (p *pwmPin) PWM(d gpio.Duty, f physic.Frequency) error {
	p.duty = d
	p.freq = f
	return nil
}

func TestPWM(t *testing.T) {
	pin := &pwmPin{Pin: gpiotest.Pin{N: "pwm1"}}
	h := NewPWM(pin)
	if err := h.Start(physic.KiloHertz, gpio.DutyHalf); err != nil {
		t.Fatal(err)
	}
	if pin.duty != gpio.DutyHalf || pin.freq != physic.KiloHertz {
		t.Fatalf("pin = %s %s, want 50%% at 1kHz", pin.duty, pin.freq)
	}
	if err := h.Stop(); err != nil {
		t.Fatal(err)
	}
	if pin.L != gpio.Low {
		t.Fatal("pin was not parked low")
	}
}

type firedCounter struct {
	n int
}

func (f *firedCounter) Fired() { f.n++ }

func TestAlarm(t *testing.T) {
	mock := clock.NewMock()
	a := NewAlarm(mock)
	f := &firedCounter{}
	a.SetClient(f)

	a.Arm(10 * time.Millisecond)
	mock.Add(5 * time.Millisecond)
	if f.n != 0 {
		t.Fatalf("fired %d times before the deadline", f.n)
	}
	// Re-arming replaces the previous deadline.
	a.Arm(20 * time.Millisecond)
	mock.Add(10 * time.Millisecond)
	if f.n != 0 {
		t.Fatalf("fired %d times, old deadline was not replaced", f.n)
	}
	mock.Add(10 * time.Millisecond)
	if f.n != 1 {
		t.Fatalf("fired %d times, want 1", f.n)
	}
}
