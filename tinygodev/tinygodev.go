// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package tinygodev adapts a tinygo.org/x/drivers I²C bus to the
// asynchronous virtdev.I2CMaster contract, for running the mux layer on
// microcontroller targets whose bus drivers implement drivers.I2C.
//
// Like hostbus, the blocking Tx runs on an adapter-owned worker goroutine
// and completions fire from it.
package tinygodev

import (
	"tinygo.org/x/drivers"

	"periph.io/x/virtdev"
)

type op struct {
	addr   uint16
	buf    []byte
	wn, rn int
}

// I2C adapts a drivers.I2C to the virtdev.I2CMaster contract.
type I2C struct {
	bus     drivers.I2C
	client  virtdev.I2CClient
	ops     chan op
	done    chan struct{}
	scratch [256]byte
}

// NewI2C returns an adapter owning the given bus and its worker goroutine.
func NewI2C(bus drivers.I2C) *I2C {
	d := &I2C{
		bus:  bus,
		ops:  make(chan op, 1),
		done: make(chan struct{}),
	}
	go d.run()
	return d
}

// Halt stops the worker goroutine. Pending work is completed first.
func (d *I2C) Halt() error {
	close(d.ops)
	<-d.done
	return nil
}

// Write implements virtdev.I2CMaster.
func (d *I2C) Write(addr uint16, buf []byte, n int) error {
	return d.submit(op{addr: addr, buf: buf, wn: n})
}

// Read implements virtdev.I2CMaster.
func (d *I2C) Read(addr uint16, buf []byte, n int) error {
	return d.submit(op{addr: addr, buf: buf, rn: n})
}

// WriteRead implements virtdev.I2CMaster.
func (d *I2C) WriteRead(addr uint16, buf []byte, wn, rn int) error {
	return d.submit(op{addr: addr, buf: buf, wn: wn, rn: rn})
}

// SetClient implements virtdev.I2CMaster.
func (d *I2C) SetClient(c virtdev.I2CClient) {
	d.client = c
}

func (d *I2C) submit(o op) error {
	if o.wn > len(o.buf) || o.rn > len(o.buf) || o.rn > len(d.scratch) {
		return virtdev.NoMem
	}
	d.ops <- o
	return nil
}

func (d *I2C) run() {
	defer close(d.done)
	for o := range d.ops {
		r := o.buf[:o.rn]
		if o.wn > 0 && o.rn > 0 {
			r = d.scratch[:o.rn]
		}
		err := d.bus.Tx(o.addr, o.buf[:o.wn], r)
		if err != nil {
			err = virtdev.NoAck
		} else if o.wn > 0 && o.rn > 0 {
			copy(o.buf, r)
		}
		d.client.CommandComplete(o.buf, err)
	}
}

var _ virtdev.I2CMaster = &I2C{}
