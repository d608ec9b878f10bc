// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package st77xx

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/virtdev"
	"periph.io/x/virtdev/screen"
	"periph.io/x/virtdev/vbus"
)

type status uint8

const (
	statusIdle status = iota
	statusReset1
	statusReset2
	statusReset3
	statusReset4
	statusInit
	statusSendCommand
	statusSendCommandSlice
	statusSendParametersSlice
	statusDelay
)

// Opts holds the configuration for a Dev.
type Opts struct {
	// Panel selects the controller variant. Required.
	Panel *Panel
	// Buffer is the shared transaction buffer. It must hold at least 11
	// bytes (9 window header bytes plus one pixel); larger buffers speed up
	// Fill. Defaults to 24 bytes.
	Buffer []byte
	// SequenceCap is the capacity of the private sequence buffer. It must
	// hold the panel's initialization sequence. Defaults to 24 entries.
	SequenceCap int
}

// Dev is an open handle to one ST77XX-family display controller sitting on
// a Bus.
//
// A Dev accepts exactly one operation at a time: any entry point called
// while a sequence is replaying fails with Busy and is never queued. All
// completions are delivered through the registered screen.Client and
// screen.SetupClient.
type Dev struct {
	bus   vbus.Bus
	alarm virtdev.Alarm
	reset gpio.PinOut
	panel *Panel

	width  int
	height int

	client       screen.Client
	setupClient  screen.SetupClient
	setupCommand bool

	status                    status
	cmd                       *Command
	cmdPos, cmdLen, cmdRepeat int
	sliceLen                  int

	// seq is the private sequence buffer; requests are copied into it
	// before replay. pos walks it one completion at a time.
	seq    []SendCommand
	seqLen int
	pos    int

	// buf is the owning slot of the shared transaction buffer; nil while
	// the buffer is at the hardware. writeBuf holds an externally owned
	// pixel buffer for the duration of a Write.
	buf      []byte
	writeBuf []byte

	powerOn bool
}

// New returns a driver for a display on the given bus. The reset pin is
// driven during Init's power-on reset; the alarm paces the controller's
// settle delays. The Dev registers itself as the bus and alarm client.
func New(b vbus.Bus, alarm virtdev.Alarm, reset gpio.PinOut, opts *Opts) (*Dev, error) {
	if opts.Panel == nil {
		return nil, fmt.Errorf("st77xx: no panel specified")
	}
	buf := opts.Buffer
	if buf == nil {
		buf = make([]byte, 24)
	}
	if len(buf) < 11 {
		return nil, fmt.Errorf("st77xx: transaction buffer must hold at least 11 bytes, got %d", len(buf))
	}
	seqCap := opts.SequenceCap
	if seqCap == 0 {
		seqCap = 24
	}
	if seqCap < len(opts.Panel.init) {
		return nil, fmt.Errorf("st77xx: sequence buffer holds %d commands, %s initialization needs %d", seqCap, opts.Panel.Name, len(opts.Panel.init))
	}
	if err := reset.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("st77xx: %w", err)
	}
	d := &Dev{
		bus:    b,
		alarm:  alarm,
		reset:  reset,
		panel:  opts.Panel,
		width:  opts.Panel.W,
		height: opts.Panel.H,
		seq:    make([]SendCommand, seqCap),
		buf:    buf,
	}
	b.SetClient(d)
	alarm.SetClient(d)
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("st77xx.Dev{%s %dx%d}", d.panel.Name, d.width, d.height)
}

// SetClient registers the data-path callback target.
func (d *Dev) SetClient(c screen.Client) {
	d.client = c
}

// SetSetupClient registers the setup-path callback target.
func (d *Dev) SetSetupClient(c screen.SetupClient) {
	d.setupClient = c
}

// Resolution returns the panel's width and height in pixels.
func (d *Dev) Resolution() (int, int) {
	return d.width, d.height
}

// PixelFormat returns the only supported pixel encoding.
func (d *Dev) PixelFormat() screen.PixelFormat {
	return screen.RGB565
}

// Rotation returns the only supported orientation.
func (d *Dev) Rotation() screen.Rotation {
	return screen.Normal
}

// Init performs the power-on reset choreography followed by the panel's
// init sequence. The first completed sequence calls the data client's
// ScreenIsReady exactly once.
func (d *Dev) Init() error {
	if d.status != statusIdle {
		return virtdev.Busy
	}
	d.status = statusReset1
	d.doNextOp()
	return nil
}

// Fill paints the whole panel with one RGB565 color by replaying the
// window commands and a repeated block of color bytes sized to the
// transaction buffer. Completion is the data client's CommandComplete.
func (d *Dev) Fill(color uint16) error {
	if d.status != statusIdle {
		return virtdev.Busy
	}
	space := (len(d.buf) - 9) / 2 * 2
	if len(d.seq) < 3 || space <= 0 {
		return virtdev.NoMem
	}
	bytes := d.width * d.height * 2
	repeat := (bytes + space - 1) / space
	d.seq[0] = Default(d.panel.caset)
	d.seq[1] = Default(d.panel.raset)
	d.seq[2] = Repeat(&cmdWriteRAM, 9, space, repeat)
	for i := 0; i < space/2; i++ {
		d.buf[9+2*i] = byte(color >> 8)
		d.buf[9+2*i+1] = byte(color)
	}
	d.seqLen = 3
	d.setupCommand = false
	d.sendSequenceBuffer()
	return nil
}

// WritePixel paints one pixel.
func (d *Dev) WritePixel(x, y int, color uint16) error {
	if x < 0 || y < 0 || x >= d.width || y >= d.height {
		return virtdev.Invalid
	}
	if d.status != statusIdle {
		return virtdev.Busy
	}
	if len(d.buf) < 11 {
		return virtdev.NoMem
	}
	d.buf[1] = 0
	d.buf[2] = byte(x)
	d.buf[3] = 0
	d.buf[4] = byte(x + 1)
	d.buf[5] = 0
	d.buf[6] = byte(y)
	d.buf[7] = 0
	d.buf[8] = byte(y + 1)
	d.buf[9] = byte(color >> 8)
	d.buf[10] = byte(color)
	d.setupCommand = false
	return d.sendSequence([]SendCommand{
		Position(d.panel.caset, 1, 4),
		Position(d.panel.raset, 5, 4),
		Position(&cmdWriteRAM, 9, 2),
	})
}

// SetWriteFrame sets the window subsequent Write data is streamed into.
func (d *Dev) SetWriteFrame(x, y, w, h int) error {
	if d.status != statusIdle {
		return virtdev.Busy
	}
	if len(d.buf) < 8 {
		return virtdev.NoMem
	}
	ex, ey := x+w-1, y+h-1
	if x < 0 || y < 0 || x > ex || y > ey || ex >= d.width || ey >= d.height {
		return virtdev.Invalid
	}
	d.buf[0] = byte(x >> 8)
	d.buf[1] = byte(x)
	d.buf[2] = byte(ex >> 8)
	d.buf[3] = byte(ex)
	d.buf[4] = byte(y >> 8)
	d.buf[5] = byte(y)
	d.buf[6] = byte(ey >> 8)
	d.buf[7] = byte(ey)
	d.setupCommand = false
	return d.sendSequence([]SendCommand{
		Position(d.panel.caset, 0, 4),
		Position(d.panel.raset, 4, 4),
	})
}

// Write streams pixels[:n] into the current write frame. The buffer holds
// big-endian RGB565 pixels, so n must cover whole pixels. It moves to the
// Dev until the data client's WriteComplete returns it.
func (d *Dev) Write(pixels []byte, n int) error {
	if d.status != statusIdle {
		return virtdev.Busy
	}
	if n <= 0 || len(pixels) < n {
		return virtdev.NoMem
	}
	if n%2 != 0 {
		return virtdev.Invalid
	}
	d.writeBuf = pixels
	d.setupCommand = false
	if err := d.sendSequence([]SendCommand{Slice(&cmdWriteRAM, n)}); err != nil {
		d.writeBuf = nil
		return err
	}
	return nil
}

// SetResolution accepts only the panel's native resolution.
func (d *Dev) SetResolution(w, h int) error {
	if d.status != statusIdle {
		return virtdev.Busy
	}
	if w != d.width || h != d.height {
		return virtdev.Unsupported
	}
	if d.setupClient != nil {
		d.setupClient.CommandComplete(nil)
	}
	return nil
}

// SetPixelFormat accepts only RGB565.
func (d *Dev) SetPixelFormat(f screen.PixelFormat) error {
	if d.status != statusIdle {
		return virtdev.Busy
	}
	if f != screen.RGB565 {
		return virtdev.Invalid
	}
	if d.setupClient != nil {
		d.setupClient.CommandComplete(nil)
	}
	return nil
}

// SetRotation accepts only the native orientation.
func (d *Dev) SetRotation(r screen.Rotation) error {
	if d.status != statusIdle {
		return virtdev.Busy
	}
	if r != screen.Normal {
		return virtdev.Unsupported
	}
	if d.setupClient != nil {
		d.setupClient.CommandComplete(nil)
	}
	return nil
}

// SetBrightness turns the display on for any non-zero value and off for
// zero; the controller has no backlight control of its own.
func (d *Dev) SetBrightness(b int) error {
	if b > 0 {
		return d.displayCommand(&cmdDisplayOn)
	}
	return d.displayCommand(&cmdDisplayOff)
}

// InvertOn enables display color inversion on panels that support it.
func (d *Dev) InvertOn() error {
	if !d.panel.invert {
		return virtdev.Unsupported
	}
	return d.displayCommand(&cmdInvertOn)
}

// InvertOff disables display color inversion on panels that support it.
func (d *Dev) InvertOff() error {
	if !d.panel.invert {
		return virtdev.Unsupported
	}
	return d.displayCommand(&cmdInvertOff)
}

func (d *Dev) displayCommand(cmd *Command) error {
	if d.status != statusIdle {
		return virtdev.Busy
	}
	if !d.powerOn {
		return virtdev.Off
	}
	d.setupCommand = false
	return d.sendSequence([]SendCommand{Default(cmd)})
}

// sendSequence copies seq into the private sequence buffer and starts the
// replay. The copy keeps the caller's sequence immutable and lets entry
// points splice dynamic coordinates in before dispatch.
func (d *Dev) sendSequence(seq []SendCommand) error {
	if d.status != statusIdle {
		return virtdev.Busy
	}
	if len(seq) > len(d.seq) {
		return virtdev.NoMem
	}
	copy(d.seq, seq)
	d.seqLen = len(seq)
	d.sendSequenceBuffer()
	return nil
}

func (d *Dev) sendSequenceBuffer() {
	d.pos = 0
	d.status = statusDelay
	d.doNextOp()
}

// doNextOp advances the state machine one step. It is re-entered from bus
// completions and alarm fires; a synchronously completing bus unwinds the
// whole sequence in one call stack.
func (d *Dev) doNextOp() {
	switch d.status {
	case statusDelay:
		p := d.pos
		d.pos++
		if p < d.seqLen {
			d.dispatch(d.seq[p])
			return
		}
		d.status = statusIdle
		d.complete()
	case statusSendCommand:
		if d.cmdRepeat == 0 {
			d.commandDone()
		} else {
			d.sendParameters(d.cmdPos, d.cmdLen, d.cmdRepeat)
		}
	case statusSendCommandSlice:
		d.sendParametersSlice(d.sliceLen)
	case statusSendParametersSlice:
		d.commandDone()
	case statusReset1:
		_ = d.reset.Out(gpio.Low)
		d.setDelay(5*time.Millisecond, statusReset2)
	case statusReset2:
		_ = d.reset.Out(gpio.High)
		d.setDelay(10*time.Millisecond, statusReset3)
	case statusReset3:
		_ = d.reset.Out(gpio.Low)
		d.setDelay(20*time.Millisecond, statusReset4)
	case statusReset4:
		_ = d.reset.Out(gpio.High)
		d.setDelay(10*time.Millisecond, statusInit)
	case statusInit:
		d.status = statusIdle
		// Cannot fail: New sizes the sequence buffer to hold the init table.
		_ = d.sendSequence(d.panel.init)
	default:
		panic("st77xx: scheduler invoked while idle")
	}
}

func (d *Dev) dispatch(sc SendCommand) {
	switch sc.kind {
	case sendNop:
		d.doNextOp()
	case sendDefault:
		d.sendCommandDefault(sc.cmd)
	case sendPosition:
		d.sendCommand(sc.cmd, sc.pos, sc.len, 1)
	case sendRepeat:
		d.sendCommand(sc.cmd, sc.pos, sc.len, sc.repeat)
	case sendSlice:
		d.sendCommandSlice(sc.cmd, sc.len)
	}
}

// complete routes an end-of-sequence notification: first ever completion
// powers the screen on, setup commands go to the setup client, everything
// else to the data client, returning the write buffer when one is held.
func (d *Dev) complete() {
	if !d.powerOn {
		d.powerOn = true
		if d.client != nil {
			d.client.ScreenIsReady()
		}
		return
	}
	if d.setupCommand {
		d.setupCommand = false
		if d.setupClient != nil {
			d.setupClient.CommandComplete(nil)
		}
		return
	}
	if d.client == nil {
		return
	}
	if wb := d.writeBuf; wb != nil {
		d.writeBuf = nil
		d.client.WriteComplete(wb, nil)
	} else {
		d.client.CommandComplete(nil)
	}
}

func (d *Dev) sendCommandDefault(cmd *Command) {
	if d.buf == nil {
		panic("st77xx: transaction buffer was not returned")
	}
	if len(cmd.params) > len(d.buf) {
		panic("st77xx: transaction buffer too small for command parameters")
	}
	n := copy(d.buf, cmd.params)
	d.sendCommand(cmd, 0, n, 1)
}

// sendCommand transmits the opcode; the parameter block at pos is sent by
// sendParameters once the opcode's completion fires.
func (d *Dev) sendCommand(cmd *Command, pos, n, repeat int) {
	d.cmd = cmd
	d.status = statusSendCommand
	d.cmdPos = pos
	d.cmdLen = n
	d.cmdRepeat = repeat
	_ = d.bus.SetAddr(vbus.Bits8, uint(cmd.op))
}

func (d *Dev) sendCommandSlice(cmd *Command, n int) {
	d.cmd = cmd
	d.status = statusSendCommandSlice
	d.sliceLen = n
	_ = d.bus.SetAddr(vbus.Bits8, uint(cmd.op))
}

// sendParameters transmits n parameter bytes. The block is shifted to the
// start of the buffer on the first pass so that repeats retransmit from
// offset zero.
func (d *Dev) sendParameters(pos, n, repeat int) {
	d.cmdPos = 0
	d.cmdLen = n
	d.cmdRepeat = repeat - 1
	if n == 0 {
		d.doNextOp()
		return
	}
	buf := d.buf
	if buf == nil {
		panic("st77xx: transaction buffer was not returned")
	}
	d.buf = nil
	if pos > 0 {
		copy(buf, buf[pos:pos+n])
	}
	_ = d.bus.Write(vbus.Bits8, buf, n)
}

// sendParametersSlice streams the externally owned write buffer as 16-bit
// big-endian items.
func (d *Dev) sendParametersSlice(n int) {
	wb := d.writeBuf
	if wb == nil {
		panic("st77xx: write buffer was not returned")
	}
	d.writeBuf = nil
	d.status = statusSendParametersSlice
	_ = d.bus.Write(vbus.Bits16BE, wb, n/2)
}

func (d *Dev) commandDone() {
	delay := time.Duration(d.cmd.delay) * time.Millisecond
	if d.cmd.delay == 255 {
		delay = 500 * time.Millisecond
	}
	if delay > 0 {
		d.setDelay(delay, statusDelay)
	} else {
		d.status = statusDelay
		d.doNextOp()
	}
}

func (d *Dev) setDelay(dur time.Duration, next status) {
	d.status = next
	d.alarm.Arm(dur)
}

// CommandComplete implements vbus.Client. The returned buffer is restored
// to whichever slot it was taken from.
func (d *Dev) CommandComplete(buf []byte, n int) {
	if d.status == statusSendParametersSlice {
		d.writeBuf = buf
	} else if buf != nil {
		d.buf = buf
	}
	d.doNextOp()
}

// Fired implements virtdev.AlarmClient.
func (d *Dev) Fired() {
	d.doNextOp()
}

var _ vbus.Client = &Dev{}
var _ virtdev.AlarmClient = &Dev{}
