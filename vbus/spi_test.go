// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package vbus

import (
	"testing"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/virtdev"
)

// fakeSPIDev echoes transfers instantly: every accepted ReadWriteBytes
// completes synchronously before returning.
type fakeSPIDev struct {
	client virtdev.SPIClient
	mode   spi.Mode
	freq   physic.Frequency
	lastW  []byte
	lastN  int
}

func (f *fakeSPIDev) Configure(mode spi.Mode, freq physic.Frequency) error {
	f.mode, f.freq = mode, freq
	return nil
}

func (f *fakeSPIDev) ReadWriteBytes(w, r []byte, n int) error {
	f.lastW = w[:n]
	f.lastN = n
	f.client.ReadWriteDone(w, r, n)
	return nil
}

func (f *fakeSPIDev) SetClient(c virtdev.SPIClient) {
	f.client = c
}

// TestSPIMasterBus_SetAddr is the set_addr scenario: one 1-byte write with
// the command value, then command_complete(nil, 0).
func TestSPIMasterBus_SetAddr(t *testing.T) {
	dev := &fakeSPIDev{}
	b := NewSPIMasterBus(dev)
	log := &completionLog{}
	b.SetClient(log)

	if err := b.SetAddr(Bits8, 0x2A); err != nil {
		t.Fatal(err)
	}
	if dev.lastN != 1 || dev.lastW[0] != 0x2A {
		t.Fatalf("device transfer = %v n=%d, want [0x2A] n=1", dev.lastW, dev.lastN)
	}
	if len(log.bufs) != 1 || log.bufs[0] != nil || log.ns[0] != 0 {
		t.Fatalf("completion = %v %v, want one (nil, 0)", log.bufs, log.ns)
	}
	if b.status != statusIdle || b.addrBuf == nil {
		t.Fatal("adapter did not return to idle with its address buffer home")
	}
}

func TestSPIMasterBus_WriteReportsItems(t *testing.T) {
	dev := &fakeSPIDev{}
	b := NewSPIMasterBus(dev)
	log := &completionLog{}
	b.SetClient(log)

	buf := []byte{0xAA, 0x55, 0xAA, 0x55, 0xAA, 0x55}
	if err := b.Write(Bits16BE, buf, 3); err != nil {
		t.Fatal(err)
	}
	if dev.lastN != 6 {
		t.Fatalf("byte count = %d, want 6", dev.lastN)
	}
	if &log.bufs[0][0] != &buf[0] || log.ns[0] != 3 {
		t.Fatalf("completion = (%p, %d), want caller's buffer, 3 items", log.bufs[0], log.ns[0])
	}
}

func TestSPIMasterBus_ReadUsesFiller(t *testing.T) {
	dev := &fakeSPIDev{}
	b := NewSPIMasterBus(dev)
	log := &completionLog{}
	b.SetClient(log)

	filler := make([]byte, 16)
	b.SetReadWriteBuffer(filler)

	rbuf := make([]byte, 16)
	if err := b.Read(Bits8, rbuf, 8); err != nil {
		t.Fatal(err)
	}
	if &dev.lastW[0] != &filler[0] {
		t.Fatal("read did not shift out the filler buffer")
	}
	// The filler returns to its slot; the caller gets the read buffer.
	if b.readWriteBuf == nil {
		t.Fatal("filler buffer not returned to its slot")
	}
	if &log.bufs[0][0] != &rbuf[0] || log.ns[0] != 8 {
		t.Fatalf("completion = (%p, %d), want read buffer, 8 items", log.bufs[0], log.ns[0])
	}
}

func TestSPIMasterBus_ReadWithoutFillerPanics(t *testing.T) {
	b := NewSPIMasterBus(&fakeSPIDev{})
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic: read with no filler buffer is an ownership violation")
		}
	}()
	_ = b.Read(Bits8, make([]byte, 8), 8)
}

func TestSPIMasterBus_Capacity(t *testing.T) {
	dev := &fakeSPIDev{}
	b := NewSPIMasterBus(dev)
	b.SetReadWriteBuffer(make([]byte, 4))

	if err := b.Write(Bits32BE, make([]byte, 7), 2); err != virtdev.NoMem {
		t.Fatalf("short write = %v, want NoMem", err)
	}
	// Filler too small for the requested read.
	if err := b.Read(Bits8, make([]byte, 8), 8); err != virtdev.NoMem {
		t.Fatalf("read beyond filler = %v, want NoMem", err)
	}
	if b.readWriteBuf == nil {
		t.Fatal("filler lost on rejected read")
	}
	if err := b.SetAddr(Bits16LE, 0x2A); err != virtdev.Unsupported {
		t.Fatalf("wide SetAddr = %v, want Unsupported", err)
	}
}
