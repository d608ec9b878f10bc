// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package st77xx

// Command is a static descriptor of one controller command: the opcode,
// its default parameter bytes and the settle delay in milliseconds the
// controller needs after it. A delay of 255 means 500ms.
type Command struct {
	op     byte
	params []byte
	delay  byte
}

type sendKind uint8

const (
	sendNop sendKind = iota
	sendDefault
	sendPosition
	sendRepeat
	sendSlice
)

// SendCommand describes how one Command's parameters are spliced into the
// shared transaction buffer when a sequence is replayed.
type SendCommand struct {
	kind     sendKind
	cmd      *Command
	pos, len int
	repeat   int
}

// Default transmits the command followed by its static parameter bytes.
func Default(cmd *Command) SendCommand {
	return SendCommand{kind: sendDefault, cmd: cmd}
}

// Position transmits the command followed by len bytes the caller
// pre-filled into the transaction buffer at pos.
func Position(cmd *Command, pos, len int) SendCommand {
	return SendCommand{kind: sendPosition, cmd: cmd, pos: pos, len: len}
}

// Repeat transmits the command, then the buffer block at pos of the given
// length, repeat times. Used for bulk fills.
func Repeat(cmd *Command, pos, len, repeat int) SendCommand {
	return SendCommand{kind: sendRepeat, cmd: cmd, pos: pos, len: len, repeat: repeat}
}

// Slice transmits the command, then streams len bytes from the externally
// owned write buffer. Used for bulk pixel data.
func Slice(cmd *Command, len int) SendCommand {
	return SendCommand{kind: sendSlice, cmd: cmd, len: len}
}

// Commands shared by the whole family.
var (
	cmdNop        = Command{op: 0x00}
	cmdSWReset    = Command{op: 0x01, delay: 200}
	cmdSleepIn    = Command{op: 0x10}
	cmdSleepOut   = Command{op: 0x11, delay: 120}
	cmdInvertOff  = Command{op: 0x20}
	cmdInvertOn   = Command{op: 0x21, delay: 120}
	cmdDisplayOff = Command{op: 0x28}
	cmdDisplayOn  = Command{op: 0x29, delay: 20}
	cmdWriteRAM   = Command{op: 0x2C}
	cmdReadRAM    = Command{op: 0x2E}
	cmdIdleOff    = Command{op: 0x38, delay: 20}
	cmdIdleOn     = Command{op: 0x39}
)

// ST7789H2-specific commands.
var (
	st7789CASET         = Command{op: 0x2A, params: []byte{0x00, 0x00, 0x00, 0xEF}}
	st7789RASET         = Command{op: 0x2B, params: []byte{0x00, 0x00, 0x00, 0xEF}}
	st7789NormalDisplay = Command{op: 0x36, params: []byte{0x00}}
	st7789ColorMode     = Command{op: 0x3A, params: []byte{0x05}}
	st7789PorchCtrl     = Command{op: 0xB2, params: []byte{0x0C, 0x0C, 0x00, 0x33, 0x33}}
	st7789GateCtrl      = Command{op: 0xB7, params: []byte{0x35}}
	st7789VCOMSet       = Command{op: 0xBB, params: []byte{0x1F}}
	st7789LCMCtrl       = Command{op: 0xC0, params: []byte{0x2C}}
	st7789VDVVRHEn      = Command{op: 0xC2, params: []byte{0x01, 0xC3}}
	st7789VDVSet        = Command{op: 0xC4, params: []byte{0x20}}
	st7789FRCtrl        = Command{op: 0xC6, params: []byte{0x0F}}
	st7789PowerCtrl     = Command{op: 0xD0, params: []byte{0xA4, 0xA1}}
	st7789PVGammaCtrl   = Command{op: 0xE0, params: []byte{
		0xD0, 0x08, 0x11, 0x08, 0x0C, 0x15, 0x39, 0x33, 0x50, 0x36, 0x13, 0x14, 0x29, 0x2D,
	}}
	st7789NVGammaCtrl = Command{op: 0xE1, params: []byte{
		0xD0, 0x08, 0x10, 0x08, 0x06, 0x06, 0x39, 0x44, 0x51, 0x0B, 0x16, 0x14, 0x2F, 0x31,
	}}
	st7789TearingEffect = Command{op: 0x35, params: []byte{0x00}}
)

// LS016B8UY-specific commands.
var (
	lsCASET         = Command{op: 0x2A, params: []byte{0x00, 0x1E, 0x00, 0xD1}}
	lsRASET         = Command{op: 0x2B, params: []byte{0x00, 0x00, 0x00, 0xB3}}
	lsVSyncOutput   = Command{op: 0x35, params: []byte{0x00}}
	lsNormalDisplay = Command{op: 0x36, params: []byte{0x83}}
	lsColorMode     = Command{op: 0x3A, params: []byte{0x55}}
	lsGVDD          = Command{op: 0xC0, params: []byte{0x53}}
	lsSleepOut      = Command{op: 0x11, delay: 150}
)

// Panel bundles one controller's geometry, its window commands and the
// power-on init sequence.
type Panel struct {
	Name string
	W, H int

	caset, raset *Command
	invert       bool
	init         []SendCommand
}

// ST7789H2 is the 240x240 controller found on the STM32F412G discovery
// board's TFT.
var ST7789H2 = &Panel{
	Name:   "ST7789H2",
	W:      240,
	H:      240,
	caset:  &st7789CASET,
	raset:  &st7789RASET,
	invert: true,
	init: []SendCommand{
		Default(&cmdSleepIn),
		Default(&cmdSWReset),
		Default(&cmdSleepOut),
		Default(&st7789NormalDisplay),
		Default(&st7789ColorMode),
		Default(&cmdInvertOn),
		Default(&st7789CASET),
		Default(&st7789RASET),
		Default(&st7789PorchCtrl),
		Default(&st7789GateCtrl),
		Default(&st7789VCOMSet),
		Default(&st7789LCMCtrl),
		Default(&st7789VDVVRHEn),
		Default(&st7789VDVSet),
		Default(&st7789FRCtrl),
		Default(&st7789PowerCtrl),
		Default(&st7789PVGammaCtrl),
		Default(&st7789NVGammaCtrl),
		Default(&cmdDisplayOn),
		Default(&cmdSleepOut),
		Default(&st7789TearingEffect),
	},
}

// LS016B8UY is the 240x240 parallel-bus panel of the same command family.
var LS016B8UY = &Panel{
	Name:  "LS016B8UY",
	W:     240,
	H:     240,
	caset: &lsCASET,
	raset: &lsRASET,
	init: []SendCommand{
		Default(&lsVSyncOutput),
		Default(&lsColorMode),
		Default(&lsGVDD),
		Default(&lsSleepOut),
		Default(&lsNormalDisplay),
		Default(&lsCASET),
		Default(&lsRASET),
		Default(&cmdDisplayOn),
		Default(&cmdIdleOff),
	},
}
