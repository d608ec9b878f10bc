// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package image565 implements a 16 bits per pixel RGB565 image, the wire
// format of ST77XX-family displays.
//
// Pixels are stored most significant byte first, matching the byte order
// the controllers expect, so the backing buffer can be streamed to a
// display without conversion.
package image565

import (
	"image"
	"image/color"
	"image/draw"
)

// RGB565 is one pixel: 5 bits red, 6 bits green, 5 bits blue.
type RGB565 uint16

// New565 packs a color into RGB565.
func New565(c color.Color) RGB565 {
	r, g, b, _ := c.RGBA()
	return RGB565(r>>11<<11 | g>>10<<5 | b>>11)
}

// RGBA implements color.Color.
func (c RGB565) RGBA() (uint32, uint32, uint32, uint32) {
	// Replicate the top bits into the low bits so full scale maps to full
	// scale.
	r := uint32(c >> 11)
	r = r<<11 | r<<6 | r<<1 | r>>4
	g := uint32(c >> 5 & 0x3F)
	g = g<<10 | g<<4 | g>>2
	b := uint32(c & 0x1F)
	b = b<<11 | b<<6 | b<<1 | b>>4
	return r, g, b, 0xFFFF
}

var _ color.Color = RGB565(0)

func model(c color.Color) color.Color {
	if _, ok := c.(RGB565); ok {
		return c
	}
	return New565(c)
}

// Image is an in-memory RGB565 image.
type Image struct {
	// Pix holds big-endian RGB565 pixels in row-major order.
	Pix    []byte
	Stride int
	Rect   image.Rectangle
}

// New returns an initialized black Image of the given bounds.
func New(r image.Rectangle) *Image {
	return &Image{
		Pix:    make([]byte, r.Dx()*r.Dy()*2),
		Stride: r.Dx() * 2,
		Rect:   r,
	}
}

// ColorModel implements image.Image.
func (i *Image) ColorModel() color.Model {
	return color.ModelFunc(model)
}

// Bounds implements image.Image.
func (i *Image) Bounds() image.Rectangle {
	return i.Rect
}

// At implements image.Image.
func (i *Image) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(i.Rect)) {
		return RGB565(0)
	}
	o := i.pixOffset(x, y)
	return RGB565(uint16(i.Pix[o])<<8 | uint16(i.Pix[o+1]))
}

// Set implements draw.Image.
func (i *Image) Set(x, y int, c color.Color) {
	if !(image.Point{x, y}.In(i.Rect)) {
		return
	}
	i.SetRGB565(x, y, New565(c))
}

// SetRGB565 sets a pixel without color model conversion.
func (i *Image) SetRGB565(x, y int, c RGB565) {
	o := i.pixOffset(x, y)
	i.Pix[o] = byte(c >> 8)
	i.Pix[o+1] = byte(c)
}

func (i *Image) pixOffset(x, y int) int {
	return (y-i.Rect.Min.Y)*i.Stride + (x-i.Rect.Min.X)*2
}

var _ draw.Image = &Image{}
