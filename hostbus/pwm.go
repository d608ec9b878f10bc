// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hostbus

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/virtdev"
)

// PWM adapts a gpio.PinIO with hardware PWM support to the virtdev.PWMPin
// contract. Start and Stop are synchronous; no worker is needed.
type PWM struct {
	pin gpio.PinIO
}

// NewPWM returns an adapter for the given pin.
func NewPWM(pin gpio.PinIO) *PWM {
	return &PWM{pin: pin}
}

func (h *PWM) String() string {
	return "hostbus.PWM{" + h.pin.String() + "}"
}

// Start implements virtdev.PWMPin.
func (h *PWM) Start(freq physic.Frequency, duty gpio.Duty) error {
	if err := h.pin.PWM(duty, freq); err != nil {
		return fmt.Errorf("hostbus: %w", err)
	}
	return nil
}

// Stop implements virtdev.PWMPin. The pin is parked low.
func (h *PWM) Stop() error {
	if err := h.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("hostbus: %w", err)
	}
	return nil
}

var _ virtdev.PWMPin = &PWM{}
