// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pwmmux shares one PWM output among multiple virtual users.
//
// Unlike conversions or transfers, a PWM signal has no completion: once a
// user's Start reaches the pin, that user occupies the output until it
// calls Stop. Other users' requests stay queued for the duration.
//
// Scheduling is head-of-registration-order. A Dev's pending-operation slot
// is overwrite: a new Start or Stop before dispatch replaces the previous
// request.
package pwmmux

import (
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/virtdev"
)

type operation uint8

const (
	opNone operation = iota
	opStart
	opStop
)

// Mux arbitrates access to a single PWM output.
type Mux struct {
	pin virtdev.PWMPin

	mu       sync.Mutex
	devices  []*Dev
	inflight *Dev
}

// NewMux returns a Mux owning the given pin. The pin must not be used
// directly once virtualized.
func NewMux(pin virtdev.PWMPin) *Mux {
	return &Mux{pin: pin}
}

// doNextOp drains pending operations. A Start occupies the pin and parks
// the loop until the occupying Dev requests Stop; Stop requests from other
// Devs are served without touching the occupancy. The mutex is never held
// across a call into the pin.
func (m *Mux) doNextOp() {
	for {
		m.mu.Lock()
		if d := m.inflight; d != nil {
			op := d.op
			d.op = opNone
			switch op {
			case opStart:
				freq, duty := d.freq, d.duty
				m.mu.Unlock()
				_ = m.pin.Start(freq, duty)
				return
			case opStop:
				m.inflight = nil
				m.mu.Unlock()
				_ = m.pin.Stop()
				continue
			}
			// Signal running. Other Devs' stops are still served; their
			// starts wait for the occupant to release the output.
			var next *Dev
			for _, o := range m.devices {
				if o.op == opStop {
					next = o
					break
				}
			}
			if next == nil {
				m.mu.Unlock()
				return
			}
			next.op = opNone
			m.mu.Unlock()
			_ = m.pin.Stop()
			continue
		}
		var next *Dev
		for _, d := range m.devices {
			if d.op != opNone {
				next = d
				break
			}
		}
		if next == nil {
			m.mu.Unlock()
			return
		}
		op := next.op
		next.op = opNone
		if op == opStop {
			// Stopping an output this Dev does not occupy is served
			// directly and never takes occupancy.
			m.mu.Unlock()
			_ = m.pin.Stop()
			continue
		}
		freq, duty := next.freq, next.duty
		m.inflight = next
		m.mu.Unlock()
		_ = m.pin.Start(freq, duty)
		return
	}
}

// Dev is one virtual user of a PWM output.
type Dev struct {
	mux *Mux

	// Guarded by mux.mu.
	op         operation
	freq       physic.Frequency
	duty       gpio.Duty
	registered bool
}

// NewDev returns a virtual PWM user on the given Mux. It is inert until
// AddToMux is called.
func NewDev(m *Mux) *Dev {
	return &Dev{mux: m}
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

// Start requests the output to run at the given frequency and duty cycle.
// It always succeeds: the request is queued and reaches the pin when no
// other Dev occupies it. Once running, the output belongs to this Dev
// until it calls Stop.
func (d *Dev) Start(freq physic.Frequency, duty gpio.Duty) error {
	d.mux.mu.Lock()
	d.op = opStart
	d.freq = freq
	d.duty = duty
	d.mux.mu.Unlock()
	d.mux.doNextOp()
	return nil
}

// Stop requests the output to stop. If this Dev occupies the pin the
// output is released for the next queued Start.
func (d *Dev) Stop() error {
	d.mux.mu.Lock()
	d.op = opStop
	d.mux.mu.Unlock()
	d.mux.doNextOp()
	return nil
}
