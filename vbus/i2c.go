// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package vbus

import (
	"periph.io/x/virtdev"
)

// I2CDev is the virtualized single-address I²C device an I2CMasterBus runs
// on, typically an *i2cmux.Dev.
type I2CDev interface {
	Write(buf []byte, n int) error
	Read(buf []byte, n int) error
	SetClient(c virtdev.I2CClient)
}

// I2CMasterBus adapts a single-address I²C device to the Bus interface.
//
// It is a pure protocol translator: it never retries, and a device-level
// error on completion is reported to the client as a zero-length completion.
type I2CMasterBus struct {
	dev    I2CDev
	client Client

	status busStatus
	// items is the item count to report on the next completion.
	items int
	// addrBuf is the private one-byte address buffer. nil while the byte is
	// out on the wire.
	addrBuf []byte
}

// NewI2CMasterBus returns a Bus running over the given virtualized I²C
// device. It registers itself as the device's completion client.
func NewI2CMasterBus(dev I2CDev) *I2CMasterBus {
	b := &I2CMasterBus{dev: dev, addrBuf: make([]byte, 1)}
	dev.SetClient(b)
	return b
}

// SetAddr implements Bus. The I²C device address itself is fixed by the
// underlying virtual device; this selects the register address written as a
// one-byte payload.
func (b *I2CMasterBus) SetAddr(w Width, addr uint) error {
	if w != Bits8 {
		return virtdev.Unsupported
	}
	buf := b.addrBuf
	if buf == nil {
		return virtdev.NoMem
	}
	b.addrBuf = nil
	buf[0] = byte(addr)
	b.status = statusSetAddress
	if err := b.dev.Write(buf, 1); err != nil {
		b.addrBuf = buf
		b.status = statusIdle
		return err
	}
	return nil
}

// Write implements Bus.
func (b *I2CMasterBus) Write(w Width, buf []byte, n int) error {
	bytes := n * w.Bytes()
	// The byte count travels in a single hardware count register.
	if bytes >= 255 || len(buf) < bytes {
		return virtdev.NoMem
	}
	b.items = n
	b.status = statusWrite
	if err := b.dev.Write(buf, bytes); err != nil {
		b.status = statusIdle
		return err
	}
	return nil
}

// Read implements Bus.
func (b *I2CMasterBus) Read(w Width, buf []byte, n int) error {
	bytes := n * w.Bytes()
	if bytes >= 255 || len(buf) < bytes {
		return virtdev.NoMem
	}
	b.items = n
	b.status = statusRead
	if err := b.dev.Read(buf, bytes); err != nil {
		b.status = statusIdle
		return err
	}
	return nil
}

// SetClient implements Bus.
func (b *I2CMasterBus) SetClient(c Client) {
	b.client = c
}

// CommandComplete implements virtdev.I2CClient and routes the device
// completion back to the phase that issued it.
func (b *I2CMasterBus) CommandComplete(buf []byte, err error) {
	status := b.status
	b.status = statusIdle
	n := b.items
	if err != nil {
		n = 0
	}
	switch status {
	case statusSetAddress:
		b.addrBuf = buf
		if b.client != nil {
			b.client.CommandComplete(nil, 0)
		}
	case statusWrite, statusRead:
		if b.client != nil {
			b.client.CommandComplete(buf, n)
		}
	default:
		panic("vbus: i2c device sent an extra command_complete")
	}
}

var _ Bus = &I2CMasterBus{}
var _ virtdev.I2CClient = &I2CMasterBus{}
