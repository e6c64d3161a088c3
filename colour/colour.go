// Package colour assigns distinct colours to plotted channels.
package colour

import (
	"slices"

	"github.com/lucasb-eyer/go-colorful"
)

// Palette is the fixed set handed out before random colours are generated.
var Palette = []string{
	"#1f77b4",
	"#ff7f0e",
	"#2ca02c",
	"#d62728",
	"#9467bd",
	"#8c564b",
	"#e377c2",
	"#7f7f7f",
	"#bcbd22",
	"#17becf",
}

// Generator hands out palette colours in order and takes them back in palette order,
// so a removed colour is reissued in the same place it was first issued.
// Once the palette is exhausted it generates random colours, which are never reclaimed.
type Generator struct {
	palette   []string
	selected  []string
	remaining []string
	random    func() string
}

// New creates a generator over Palette.
func New() *Generator {
	return NewWithPalette(Palette, randomHex)
}

// NewWithPalette creates a generator over palette, falling back to random when it runs out.
func NewWithPalette(palette []string, random func() string) *Generator {
	return &Generator{
		palette:   slices.Clone(palette),
		remaining: slices.Clone(palette),
		random:    random,
	}
}

// Next returns the next colour.
func (gen *Generator) Next() string {

	if len(gen.remaining) == 0 {
		return gen.random()
	}

	clr := gen.remaining[0]
	gen.remaining = gen.remaining[1:]
	gen.selected = append(gen.selected, clr)
	return clr
}

// Remove releases clr, returning it to the remaining palette colours when it came from there.
func (gen *Generator) Remove(clr string) {

	idx := slices.Index(gen.selected, clr)
	if idx < 0 {
		return
	}
	gen.selected = slices.Delete(gen.selected, idx, idx+1)

	rank := slices.Index(gen.palette, clr)
	if rank < 0 {
		return
	}

	at := len(gen.remaining)
	for i, rem := range gen.remaining {
		if slices.Index(gen.palette, rem) > rank {
			at = i
			break
		}
	}
	gen.remaining = slices.Insert(gen.remaining, at, clr)
}

// Selected returns the issued palette colours in the order they were issued.
func (gen *Generator) Selected() []string {
	return slices.Clone(gen.selected)
}

// Remaining returns the palette colours yet to be issued.
func (gen *Generator) Remaining() []string {
	return slices.Clone(gen.remaining)
}

func randomHex() string {
	return colorful.FastHappyColor().Hex()
}
