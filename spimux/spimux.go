// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package spimux shares one SPI master among multiple virtual devices, each
// with its own chip-select line and bus configuration.
//
// A Mux owns exclusive access to one virtdev.SPIMaster. A Dev bundles a
// chip-select gpio.PinOut with an spi.Mode and clock frequency; the Mux
// reconfigures the controller lazily whenever the next transfer belongs to
// a different Dev than the previous one, asserts the Dev's chip select
// (active low) around the transfer, and releases it before the completion
// callback runs.
//
// Scheduling is head-of-registration-order, the same policy as adcmux and
// i2cmux. A Dev holds at most one pending transfer; while it is queued or
// in flight the Dev reports Busy.
package spimux

import (
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/virtdev"
)

// Mux arbitrates access to a single SPI master.
type Mux struct {
	spi virtdev.SPIMaster

	mu             sync.Mutex
	devices        []*Dev
	inflight       *Dev
	lastConfigured *Dev
}

// NewMux returns a Mux owning the given master. The master must not be
// used directly once virtualized; the Mux registers itself as its client.
func NewMux(s virtdev.SPIMaster) *Mux {
	m := &Mux{spi: s}
	s.SetClient(m)
	return m
}

// doNextOp dispatches the earliest-registered pending transfer if the bus
// is free: reconfigure if the controller was last set up for a different
// device, assert chip select, start the transfer. A transfer the master
// rejects synchronously completes immediately with zero length and the
// loop moves on. The mutex is never held across a call into the master, a
// GPIO, or a client callback.
func (m *Mux) doNextOp() {
	for {
		m.mu.Lock()
		if m.inflight != nil {
			m.mu.Unlock()
			return
		}
		var next *Dev
		for _, d := range m.devices {
			if d.pending {
				next = d
				break
			}
		}
		if next == nil {
			m.mu.Unlock()
			return
		}
		w, r, n := next.w, next.r, next.n
		reconfigure := m.lastConfigured != next
		m.inflight = next
		m.lastConfigured = next
		m.mu.Unlock()

		var err error
		if reconfigure {
			err = m.spi.Configure(next.mode, next.freq)
		}
		if err == nil {
			_ = next.cs.Out(gpio.Low)
			err = m.spi.ReadWriteBytes(w, r, n)
		}
		if err == nil {
			return
		}
		_ = next.cs.Out(gpio.High)
		m.mu.Lock()
		m.inflight = nil
		next.clear()
		client := next.client
		m.mu.Unlock()
		if client != nil {
			client.ReadWriteDone(w, r, 0)
		}
	}
}

// ReadWriteDone implements virtdev.SPIClient. Chip select is released
// before the result is forwarded to the device whose transfer was in
// flight, then the next pending transfer is scheduled.
func (m *Mux) ReadWriteDone(w, r []byte, n int) {
	m.mu.Lock()
	d := m.inflight
	var client virtdev.SPIClient
	if d != nil {
		m.inflight = nil
		d.clear()
		client = d.client
	}
	m.mu.Unlock()
	if d != nil {
		_ = d.cs.Out(gpio.High)
	}
	if client != nil {
		client.ReadWriteDone(w, r, n)
	}
	m.doNextOp()
}

// Dev is one virtual SPI device bound to a Mux, a chip-select line and a
// bus configuration.
type Dev struct {
	mux  *Mux
	cs   gpio.PinOut
	mode spi.Mode
	freq physic.Frequency

	client virtdev.SPIClient

	// Guarded by mux.mu.
	pending    bool
	w, r       []byte
	n          int
	registered bool
}

// NewDev returns a virtual device using the given chip-select pin, SPI
// mode and clock frequency. The pin is driven low for the duration of each
// transfer. The Dev is inert until AddToMux is called.
func NewDev(m *Mux, cs gpio.PinOut, mode spi.Mode, freq physic.Frequency) *Dev {
	_ = cs.Out(gpio.High)
	return &Dev{mux: m, cs: cs, mode: mode, freq: freq}
}

// AddToMux registers the Dev with its Mux. Registration order determines
// scheduling priority and is permanent; calling it again is a no-op.
func (d *Dev) AddToMux() {
	m := d.mux
	m.mu.Lock()
	if !d.registered {
		d.registered = true
		m.devices = append(m.devices, d)
	}
	m.mu.Unlock()
}

// SetClient registers the callback target for transfer completions.
func (d *Dev) SetClient(c virtdev.SPIClient) {
	d.mux.mu.Lock()
	d.client = c
	d.mux.mu.Unlock()
}

// Configure changes the Dev's SPI mode and clock frequency. The new
// settings apply from the next transfer. It fails with Busy while a
// transfer is queued or in flight.
func (d *Dev) Configure(mode spi.Mode, freq physic.Frequency) error {
	m := d.mux
	m.mu.Lock()
	if d.pending || m.inflight == d {
		m.mu.Unlock()
		return virtdev.Busy
	}
	d.mode = mode
	d.freq = freq
	if m.lastConfigured == d {
		// Force a reconfigure before this device's next transfer.
		m.lastConfigured = nil
	}
	m.mu.Unlock()
	return nil
}

// ReadWriteBytes queues a transfer shifting out w[:n] while shifting in to
// r[:n]. r may be nil for a write-only transfer. Both buffers move to the
// Dev until ReadWriteDone.
func (d *Dev) ReadWriteBytes(w, r []byte, n int) error {
	if n == 0 || len(w) < n || (r != nil && len(r) < n) {
		return virtdev.NoMem
	}
	m := d.mux
	m.mu.Lock()
	if d.pending || m.inflight == d {
		m.mu.Unlock()
		return virtdev.Busy
	}
	d.pending = true
	d.w = w
	d.r = r
	d.n = n
	m.mu.Unlock()
	m.doNextOp()
	return nil
}

func (d *Dev) clear() {
	d.pending = false
	d.w = nil
	d.r = nil
	d.n = 0
}

var _ virtdev.SPIClient = &Mux{}
