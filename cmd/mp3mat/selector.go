package main

import "fmt"

// SelectorPosition is the discretized reading of a resistor-ladder selector.
// 0 means no selection; 1..5 select a directory or volume band.
type SelectorPosition int

const NoSelection SelectorPosition = 0

// Band is an inclusive raw-sample range mapped to one selector position.
type Band struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

func (b Band) contains(raw int) bool {
	return raw >= b.Min && raw <= b.Max
}

// SelectorDecoder maps raw ADC samples onto selector positions.
//
// bands[0] is position 1 and must be the highest raw range; each following
// band ends one below where the previous one starts. Only the ranges above
// bands[0] and below bands[4] decode to NoSelection.
type SelectorDecoder struct {
	bands [selectorPositions]Band
}

// NewSelectorDecoder validates bands and returns a decoder.
func NewSelectorDecoder(bands [selectorPositions]Band) (SelectorDecoder, error) {
	if err := validateBands(bands); err != nil {
		return SelectorDecoder{}, err
	}
	return SelectorDecoder{bands: bands}, nil
}

// Decode returns the position for a raw sample. Out-of-domain samples decode to 0.
func (d SelectorDecoder) Decode(raw int) SelectorPosition {
	if raw < 0 || raw > adcMax {
		return NoSelection
	}
	for i, b := range d.bands {
		if b.contains(raw) {
			return SelectorPosition(i + 1)
		}
	}
	return NoSelection
}

func validateBands(bands [selectorPositions]Band) error {
	for i, b := range bands {
		if b.Min < 0 || b.Max > adcMax {
			return fmt.Errorf("band %d [%d,%d] outside 0..%d", i+1, b.Min, b.Max, adcMax)
		}
		if b.Min > b.Max {
			return fmt.Errorf("band %d has min %d > max %d", i+1, b.Min, b.Max)
		}
		if i > 0 && b.Max != bands[i-1].Min-1 {
			return fmt.Errorf("band %d [%d,%d] must end at %d, directly below band %d [%d,%d]",
				i+1, b.Min, b.Max, bands[i-1].Min-1, i, bands[i-1].Min, bands[i-1].Max)
		}
	}
	return nil
}
