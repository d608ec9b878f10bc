// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package adcmux shares one ADC unit among multiple virtual channels.
//
// A Mux owns exclusive access to one virtdev.ADC and arbitrates among
// registered Devs. Each Dev is one logical client's binding to an input
// channel; it holds at most one pending operation, and setting it never
// blocks. At most one conversion is in flight on the hardware at any time.
//
// Scheduling is head-of-registration-order: whenever the ADC goes quiet,
// the earliest-registered Dev with a pending operation runs next. A client
// that always has work ready starves clients registered after it; fair
// rotation belongs to a different layer.
//
// Completion results fan out to every registered Dev bound to the sampled
// channel. Channel identifiers are expected to be unique per Dev; the
// wiring layer must uphold this, it is not validated here.
package adcmux

import (
	"sync"

	"periph.io/x/virtdev"
)

type operation uint8

const (
	opNone operation = iota
	opSingleSample
	opIdle
)

// Mux arbitrates access to a single ADC unit.
type Mux struct {
	adc virtdev.ADC

	mu       sync.Mutex
	devices  []*Dev
	inflight *Dev
}

// NewMux returns a Mux owning the given ADC. The ADC must not be used
// directly once virtualized; the Mux registers itself as its client.
func NewMux(adc virtdev.ADC) *Mux {
	m := &Mux{adc: adc}
	adc.SetClient(m)
	return m
}

// doNextOp runs the scheduling step: dispatch the next pending operation if
// the ADC is free, or service the in-flight device's follow-up request.
// The mutex is never held across a call into the ADC or a client callback,
// so completion callbacks may re-enter synchronously.
func (m *Mux) doNextOp() {
	for {
		m.mu.Lock()
		if d := m.inflight; d != nil {
			op := d.op
			d.op = opNone
			switch op {
			case opSingleSample:
				m.mu.Unlock()
				_ = m.adc.Sample(d.channel)
				return
			case opIdle:
				m.inflight = nil
				m.mu.Unlock()
				_ = m.adc.Stop()
				continue
			default:
				// Waiting for the conversion to complete.
				m.mu.Unlock()
				return
			}
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
		if op == opIdle {
			// An idle request never occupies the ADC.
			m.mu.Unlock()
			continue
		}
		m.inflight = next
		m.mu.Unlock()
		_ = m.adc.Sample(next.channel)
		return
	}
}

// SampleReady implements virtdev.ADCClient. The result is delivered to
// every registered Dev whose channel matches the in-flight one, then the
// next pending operation is scheduled.
func (m *Mux) SampleReady(sample uint16) {
	var clients []virtdev.ADCClient
	m.mu.Lock()
	if inflight := m.inflight; inflight != nil {
		m.inflight = nil
		for _, d := range m.devices {
			if d.channel == inflight.channel {
				d.op = opNone
				if d.client != nil {
					clients = append(clients, d.client)
				}
			}
		}
	}
	m.mu.Unlock()
	for _, c := range clients {
		c.SampleReady(sample)
	}
	m.doNextOp()
}

// Dev is one virtual ADC channel bound to a Mux.
//
// Devs are created once at board-init time and registered with AddToMux;
// they are never removed. A Dev's pending-operation slot is overwrite:
// calling Sample or Stop again before the previous request was dispatched
// replaces it.
type Dev struct {
	mux     *Mux
	channel uint8
	client  virtdev.ADCClient

	// op and registered are guarded by mux.mu.
	op         operation
	registered bool
}

// NewDev returns a virtual channel on the given Mux. It is inert until
// AddToMux is called.
func NewDev(m *Mux, channel uint8) *Dev {
	return &Dev{mux: m, channel: channel}
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

// SetClient registers the callback target for conversion results.
func (d *Dev) SetClient(c virtdev.ADCClient) {
	d.mux.mu.Lock()
	d.client = c
	d.mux.mu.Unlock()
}

// Channel returns the bound input channel.
func (d *Dev) Channel() uint8 {
	return d.channel
}

// Sample requests a single conversion. It always succeeds: the request is
// queued on the Dev and dispatched when the ADC is free.
func (d *Dev) Sample() error {
	d.mux.mu.Lock()
	d.op = opSingleSample
	d.mux.mu.Unlock()
	d.mux.doNextOp()
	return nil
}

// Stop withdraws the pending request if it has not been dispatched, or
// stops the ADC if this Dev's conversion is the one in flight.
func (d *Dev) Stop() error {
	d.mux.mu.Lock()
	d.op = opIdle
	d.mux.mu.Unlock()
	d.mux.doNextOp()
	return nil
}

var _ virtdev.ADCClient = &Mux{}
