// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hostbus

import (
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/virtdev"
)

type i2cOp struct {
	addr   uint16
	buf    []byte
	wn, rn int
}

// I2C adapts an i2c.Bus to the virtdev.I2CMaster contract.
type I2C struct {
	bus     i2c.Bus
	client  virtdev.I2CClient
	ops     chan i2cOp
	done    chan struct{}
	scratch [256]byte
}

// NewI2C returns an adapter owning the given bus and its worker goroutine.
func NewI2C(bus i2c.Bus) *I2C {
	h := &I2C{
		bus:  bus,
		ops:  make(chan i2cOp, 1),
		done: make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *I2C) String() string {
	return "hostbus.I2C{" + h.bus.String() + "}"
}

// Halt stops the worker goroutine. Pending work is completed first.
func (h *I2C) Halt() error {
	close(h.ops)
	<-h.done
	return nil
}

// Write implements virtdev.I2CMaster.
func (h *I2C) Write(addr uint16, buf []byte, n int) error {
	return h.submit(i2cOp{addr: addr, buf: buf, wn: n})
}

// Read implements virtdev.I2CMaster.
func (h *I2C) Read(addr uint16, buf []byte, n int) error {
	return h.submit(i2cOp{addr: addr, buf: buf, rn: n})
}

// WriteRead implements virtdev.I2CMaster.
func (h *I2C) WriteRead(addr uint16, buf []byte, wn, rn int) error {
	return h.submit(i2cOp{addr: addr, buf: buf, wn: wn, rn: rn})
}

// SetClient implements virtdev.I2CMaster.
func (h *I2C) SetClient(c virtdev.I2CClient) {
	h.client = c
}

func (h *I2C) submit(op i2cOp) error {
	if op.wn > len(op.buf) || op.rn > len(op.buf) || op.rn > len(h.scratch) {
		return virtdev.NoMem
	}
	h.ops <- op
	return nil
}

func (h *I2C) run() {
	defer close(h.done)
	for op := range h.ops {
		// A combined transaction reads into the scratch area so the write
		// bytes at the head of the buffer are not clobbered mid-transfer.
		r := op.buf[:op.rn]
		if op.wn > 0 && op.rn > 0 {
			r = h.scratch[:op.rn]
		}
		err := h.bus.Tx(op.addr, op.buf[:op.wn], r)
		if err != nil {
			err = virtdev.NoAck
		} else if op.wn > 0 && op.rn > 0 {
			copy(op.buf, r)
		}
		h.client.CommandComplete(op.buf, err)
	}
}

var _ virtdev.I2CMaster = &I2C{}
