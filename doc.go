// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package virtdev lets many independent logical clients share a single
// physical hardware controller.
//
// An embedded board usually has one I²C bus, one ADC unit, one SPI bus and
// one PWM timer, but many drivers that want to use them. The mux packages
// (adcmux, i2cmux, spimux, pwmmux) each own exclusive access to one physical
// controller and arbitrate among statically registered virtual devices, so
// that at most one hardware operation is ever in flight. Completion is
// reported through callbacks, never by blocking the caller.
//
// This root package holds the pieces everything else shares: the status
// codes returned synchronously by virtual devices, and the abstract hardware
// contracts (ADC, I2CMaster, SPIMaster, PWMPin, Alarm) that concrete
// controller drivers implement. The hostbus and tinygodev packages bind
// those contracts to periph.io and tinygo.org/x/drivers hardware; vbus
// normalizes I²C and SPI behind one addressed read/write protocol; st77xx
// is a display driver family built on top of the whole stack.
package virtdev
