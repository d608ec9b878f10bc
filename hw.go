// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package virtdev

import (
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// The interfaces below are the contracts the mux layer consumes. A concrete
// controller driver implements one of them; the matching Client interface is
// how it reports completion. Every operation is asynchronous: a nil return
// means "accepted, the completion callback will fire later", possibly before
// the call returns when the driver completes synchronously.
//
// Buffers handed to a controller are moved, not copied: the caller must not
// touch a buffer again until the completion callback hands it back.

// ADC is a single analog-to-digital converter unit with multiple input
// channels, sampling one channel at a time.
type ADC interface {
	// Sample requests a single conversion on the given channel.
	Sample(channel uint8) error
	// Stop aborts the conversion in progress, if any.
	Stop() error
	SetClient(c ADCClient)
}

// ADCClient receives ADC conversion results.
type ADCClient interface {
	SampleReady(sample uint16)
}

// I2CMaster is a raw I²C bus controller in master mode.
type I2CMaster interface {
	// Write sends buf[:n] to the device at addr. The buffer is moved to the
	// controller until CommandComplete returns it.
	Write(addr uint16, buf []byte, n int) error
	// Read fills buf[:n] from the device at addr.
	Read(addr uint16, buf []byte, n int) error
	// WriteRead sends buf[:wn], then reads rn bytes back into buf in a
	// single repeated-start transaction.
	WriteRead(addr uint16, buf []byte, wn, rn int) error
	SetClient(c I2CClient)
}

// I2CClient receives I²C transaction completions. The buffer is the one
// passed to the operation, returned to the caller's ownership. err is nil on
// success, or a Code such as NoAck.
type I2CClient interface {
	CommandComplete(buf []byte, err error)
}

// SPIMaster is a raw SPI bus controller in master mode. Chip select is not
// part of this contract; the spimux layer drives it per virtual device.
type SPIMaster interface {
	Configure(mode spi.Mode, freq physic.Frequency) error
	// ReadWriteBytes shifts out w[:n] while shifting in to r[:n]. r may be
	// nil for a write-only transfer. Both buffers are moved to the
	// controller until ReadWriteDone returns them.
	ReadWriteBytes(w, r []byte, n int) error
	SetClient(c SPIClient)
}

// SPIClient receives SPI transfer completions.
type SPIClient interface {
	ReadWriteDone(w, r []byte, n int)
}

// PWMPin is one hardware PWM output. Start and Stop take effect
// synchronously; there is no completion callback.
type PWMPin interface {
	Start(freq physic.Frequency, duty gpio.Duty) error
	Stop() error
}

// Alarm is a one-shot timer. Arming while armed replaces the previous
// deadline.
type Alarm interface {
	Arm(d time.Duration)
	SetClient(c AlarmClient)
}

// AlarmClient is notified when the armed deadline passes.
type AlarmClient interface {
	Fired()
}
