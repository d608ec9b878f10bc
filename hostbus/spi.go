// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hostbus

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/virtdev"
)

type spiOp struct {
	w, r []byte
	n    int
}

// SPI adapts an spi.Port to the virtdev.SPIMaster contract. Configure must
// be called before the first transfer.
type SPI struct {
	port   spi.Port
	conn   spi.Conn
	client virtdev.SPIClient
	ops    chan spiOp
	done   chan struct{}
}

// NewSPI returns an adapter owning the given port and its worker
// goroutine.
func NewSPI(port spi.Port) *SPI {
	h := &SPI{
		port: port,
		ops:  make(chan spiOp, 1),
		done: make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *SPI) String() string {
	return "hostbus.SPI{" + h.port.String() + "}"
}

// Halt stops the worker goroutine. Pending work is completed first.
func (h *SPI) Halt() error {
	close(h.ops)
	<-h.done
	return nil
}

// Configure implements virtdev.SPIMaster. It reconnects the port with the
// new mode and frequency; the spimux layer calls it whenever consecutive
// transfers belong to different virtual devices.
func (h *SPI) Configure(mode spi.Mode, freq physic.Frequency) error {
	c, err := h.port.Connect(freq, mode, 8)
	if err != nil {
		return fmt.Errorf("hostbus: %w", err)
	}
	h.conn = c
	return nil
}

// ReadWriteBytes implements virtdev.SPIMaster.
func (h *SPI) ReadWriteBytes(w, r []byte, n int) error {
	if h.conn == nil {
		return virtdev.Off
	}
	if len(w) < n || (r != nil && len(r) < n) {
		return virtdev.NoMem
	}
	h.ops <- spiOp{w: w, r: r, n: n}
	return nil
}

// SetClient implements virtdev.SPIMaster.
func (h *SPI) SetClient(c virtdev.SPIClient) {
	h.client = c
}

func (h *SPI) run() {
	defer close(h.done)
	for op := range h.ops {
		var r []byte
		if op.r != nil {
			r = op.r[:op.n]
		}
		n := op.n
		if err := h.conn.Tx(op.w[:op.n], r); err != nil {
			n = 0
		}
		h.client.ReadWriteDone(op.w, op.r, n)
	}
}

var _ virtdev.SPIMaster = &SPI{}
