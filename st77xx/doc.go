// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package st77xx drives ST77XX-family TFT controllers (ST7789H2,
// LS016B8UY) over a vbus.Bus.
//
// The family shares one command protocol: an 8-bit opcode written as the
// bus address, followed by parameter bytes. The driver expresses every
// operation as a declarative command sequence replayed through a single
// shared transaction buffer, pacing the controller's settle delays with an
// alarm. Pixel data is big-endian RGB565.
//
// # Datasheets
//
// https://www.displayfuture.com/Display/datasheet/controller/ST7789.pdf
package st77xx
