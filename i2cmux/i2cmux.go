// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package i2cmux shares one I²C master among multiple virtual devices.
//
// A Mux owns exclusive access to one virtdev.I2CMaster and arbitrates
// among registered Devs, each bound to one slave address. A Dev holds at
// most one pending transaction; while it is queued or in flight the Dev
// reports Busy. Transactions move buffer ownership: the caller hands its
// buffer over on Write, Read or WriteRead and gets it back in
// CommandComplete, never earlier.
//
// Scheduling is head-of-registration-order, the same policy as adcmux.
package i2cmux

import (
	"sync"

	"periph.io/x/virtdev"
)

type operation uint8

const (
	opNone operation = iota
	opWrite
	opRead
	opWriteRead
)

// Mux arbitrates access to a single I²C master.
type Mux struct {
	i2c virtdev.I2CMaster

	mu       sync.Mutex
	devices  []*Dev
	inflight *Dev
}

// NewMux returns a Mux owning the given master. The master must not be
// used directly once virtualized; the Mux registers itself as its client.
func NewMux(i2c virtdev.I2CMaster) *Mux {
	m := &Mux{i2c: i2c}
	i2c.SetClient(m)
	return m
}

// doNextOp dispatches the earliest-registered pending transaction if the
// bus is free. A transaction the master rejects synchronously completes
// immediately with the error and the loop moves on to the next device.
// The mutex is never held across a call into the master or a client
// callback.
func (m *Mux) doNextOp() {
	for {
		m.mu.Lock()
		if m.inflight != nil {
			m.mu.Unlock()
			return
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
		buf := next.buf
		m.inflight = next
		m.mu.Unlock()

		var err error
		switch op {
		case opWrite:
			err = m.i2c.Write(next.addr, buf, next.wn)
		case opRead:
			err = m.i2c.Read(next.addr, buf, next.rn)
		case opWriteRead:
			err = m.i2c.WriteRead(next.addr, buf, next.wn, next.rn)
		}
		if err == nil {
			return
		}
		// Rejected at dispatch: hand the buffer straight back and try the
		// next device.
		m.mu.Lock()
		m.inflight = nil
		next.op = opNone
		next.buf = nil
		client := next.client
		m.mu.Unlock()
		if client != nil {
			client.CommandComplete(buf, err)
		}
	}
}

// CommandComplete implements virtdev.I2CClient. The buffer and status are
// forwarded to the device whose transaction was in flight, then the next
// pending transaction is scheduled.
func (m *Mux) CommandComplete(buf []byte, err error) {
	m.mu.Lock()
	d := m.inflight
	var client virtdev.I2CClient
	if d != nil {
		m.inflight = nil
		d.op = opNone
		d.buf = nil
		client = d.client
	}
	m.mu.Unlock()
	if client != nil {
		client.CommandComplete(buf, err)
	}
	m.doNextOp()
}

// Dev is one virtual I²C device bound to a Mux and a slave address.
type Dev struct {
	mux  *Mux
	addr uint16

	client virtdev.I2CClient

	// Guarded by mux.mu.
	op         operation
	buf        []byte
	wn, rn     int
	registered bool
}

// NewDev returns a virtual device for the given slave address. It is inert
// until AddToMux is called.
func NewDev(m *Mux, addr uint16) *Dev {
	return &Dev{mux: m, addr: addr}
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

// SetClient registers the callback target for transaction completions.
func (d *Dev) SetClient(c virtdev.I2CClient) {
	d.mux.mu.Lock()
	d.client = c
	d.mux.mu.Unlock()
}

// Addr returns the bound slave address.
func (d *Dev) Addr() uint16 {
	return d.addr
}

// Write queues a write of the first n bytes of buf to the device. Buffer
// ownership transfers to the Dev until CommandComplete.
func (d *Dev) Write(buf []byte, n int) error {
	return d.submit(opWrite, buf, n, 0)
}

// Read queues a read of n bytes into buf from the device. Buffer ownership
// transfers to the Dev until CommandComplete.
func (d *Dev) Read(buf []byte, n int) error {
	return d.submit(opRead, buf, 0, n)
}

// WriteRead queues a write of the first wn bytes of buf followed by a
// repeated-start read of rn bytes back into buf.
func (d *Dev) WriteRead(buf []byte, wn, rn int) error {
	return d.submit(opWriteRead, buf, wn, rn)
}

func (d *Dev) submit(op operation, buf []byte, wn, rn int) error {
	if n := wn + rn; len(buf) < wn || len(buf) < rn || n == 0 {
		return virtdev.NoMem
	}
	m := d.mux
	m.mu.Lock()
	if d.op != opNone || m.inflight == d {
		m.mu.Unlock()
		return virtdev.Busy
	}
	d.op = op
	d.buf = buf
	d.wn = wn
	d.rn = rn
	m.mu.Unlock()
	m.doNextOp()
	return nil
}

var _ virtdev.I2CClient = &Mux{}
