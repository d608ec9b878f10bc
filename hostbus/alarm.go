// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hostbus

import (
	"time"

	"github.com/benbjohnson/clock"
	"periph.io/x/virtdev"
)

// Alarm implements virtdev.Alarm on a clock.Clock, so drivers pacing
// hardware settle delays can run against a mock clock in tests.
type Alarm struct {
	clk    clock.Clock
	timer  *clock.Timer
	client virtdev.AlarmClient
}

// NewAlarm returns an alarm ticking on the given clock. Pass
// clock.New() for wall time.
func NewAlarm(clk clock.Clock) *Alarm {
	return &Alarm{clk: clk}
}

// Arm implements virtdev.Alarm. Re-arming replaces the previous deadline.
func (a *Alarm) Arm(d time.Duration) {
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = a.clk.AfterFunc(d, a.client.Fired)
}

// SetClient implements virtdev.Alarm.
func (a *Alarm) SetClient(c virtdev.AlarmClient) {
	a.client = c
}

var _ virtdev.Alarm = &Alarm{}
