// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package vbus

import (
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/virtdev"
)

// SPIDev is the virtualized chip-selected SPI device a SPIMasterBus runs
// on, typically a *spimux.Dev.
type SPIDev interface {
	Configure(mode spi.Mode, freq physic.Frequency) error
	ReadWriteBytes(w, r []byte, n int) error
	SetClient(c virtdev.SPIClient)
}

// SPIMasterBus adapts a chip-selected SPI device to the Bus interface.
//
// SPI reads need bytes shifted out while reading; the adapter keeps a
// write-filler buffer for that, injected with SetReadWriteBuffer and
// returned to the slot on every completion.
type SPIMasterBus struct {
	dev    SPIDev
	client Client

	status busStatus
	// widthBytes divides the completed byte count back into items.
	widthBytes int
	// addrBuf is the private one-byte command buffer. nil while on the wire.
	addrBuf []byte
	// readWriteBuf is the write filler for reads. nil until injected, and
	// while on the wire.
	readWriteBuf []byte
}

// NewSPIMasterBus returns a Bus running over the given virtualized SPI
// device. It registers itself as the device's completion client.
func NewSPIMasterBus(dev SPIDev) *SPIMasterBus {
	b := &SPIMasterBus{dev: dev, addrBuf: make([]byte, 1), widthBytes: 1}
	dev.SetClient(b)
	return b
}

// SetReadWriteBuffer hands the adapter the filler buffer reads shift out.
func (b *SPIMasterBus) SetReadWriteBuffer(buf []byte) {
	b.readWriteBuf = buf
}

// Configure sets the SPI mode and clock rate of the underlying device.
func (b *SPIMasterBus) Configure(mode spi.Mode, freq physic.Frequency) error {
	return b.dev.Configure(mode, freq)
}

// SetAddr implements Bus. On SPI the "address" is a command byte sent in
// its own transfer.
func (b *SPIMasterBus) SetAddr(w Width, addr uint) error {
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
	if err := b.dev.ReadWriteBytes(buf, nil, 1); err != nil {
		b.addrBuf = buf
		b.status = statusIdle
		return err
	}
	return nil
}

// Write implements Bus. Endianness does not matter here: the buffer is sent
// as is.
func (b *SPIMasterBus) Write(w Width, buf []byte, n int) error {
	bytes := n * w.Bytes()
	if len(buf) < bytes {
		return virtdev.NoMem
	}
	b.widthBytes = w.Bytes()
	b.status = statusWrite
	if err := b.dev.ReadWriteBytes(buf, nil, bytes); err != nil {
		b.status = statusIdle
		return err
	}
	return nil
}

// Read implements Bus.
func (b *SPIMasterBus) Read(w Width, buf []byte, n int) error {
	bytes := n * w.Bytes()
	filler := b.readWriteBuf
	if filler == nil {
		// The owning driver never returned the filler buffer. That is a
		// broken ownership invariant, not a transient hardware condition.
		panic("vbus: spi read-write buffer was not returned")
	}
	if len(filler) < bytes || len(buf) < bytes {
		return virtdev.NoMem
	}
	b.readWriteBuf = nil
	b.widthBytes = w.Bytes()
	b.status = statusRead
	if err := b.dev.ReadWriteBytes(filler, buf, bytes); err != nil {
		b.readWriteBuf = filler
		b.status = statusIdle
		return err
	}
	return nil
}

// SetClient implements Bus.
func (b *SPIMasterBus) SetClient(c Client) {
	b.client = c
}

// ReadWriteDone implements virtdev.SPIClient.
func (b *SPIMasterBus) ReadWriteDone(w, r []byte, n int) {
	status := b.status
	b.status = statusIdle
	switch status {
	case statusSetAddress:
		b.addrBuf = w
		if b.client != nil {
			b.client.CommandComplete(nil, 0)
		}
	case statusWrite, statusRead:
		buf := w
		if r != nil {
			// The filler goes home; the caller gets its read buffer back.
			b.readWriteBuf = w
			buf = r
		}
		if b.client != nil {
			b.client.CommandComplete(buf, n/b.widthBytes)
		}
	default:
		panic("vbus: spi device sent an extra read_write_done")
	}
}

var _ Bus = &SPIMasterBus{}
var _ virtdev.SPIClient = &SPIMasterBus{}
