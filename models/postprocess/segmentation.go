// Package postprocess - Postprocessing utilities for segmentation models.
package postprocess

import (
	"sort"

	"github.com/chewxy/math32"
)

// DefaultForegroundValue is the raw model output that marks the foreground
// class. In the Pascal VOC vocabulary it is "person".
const DefaultForegroundValue = 15

// Binary class indices produced by Binarize.
const (
	Background ClassIndex = 0
	Foreground ClassIndex = 1
)

// ClassIndex identifies a semantic category.
type ClassIndex int

// ClassSet is the sorted set of classes reported for a segmentation map.
type ClassSet []ClassIndex

// Contains reports whether c is in the set.
func (s ClassSet) Contains(c ClassIndex) bool {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= c })
	return i < len(s) && s[i] == c
}

// Mode selects how raw prediction values become class indices.
type Mode string

const (
	// ModeBinary classifies each pixel as foreground or background.
	ModeBinary Mode = "binary"
	// ModeMultiClass uses the truncated prediction value as the class index.
	ModeMultiClass Mode = "multiclass"
)

// Map is a row-major grid of class indices.
type Map struct {
	Width   int
	Height  int
	Classes []ClassIndex
}

// At returns the class at column x, row y.
func (m Map) At(x, y int) ClassIndex {
	return m.Classes[y*m.Width+x]
}

// Len returns the number of entries in the map.
func (m Map) Len() int {
	return len(m.Classes)
}

// truncate converts a raw prediction to an integer, reporting false for
// values that have no integer meaning (NaN, ±Inf).
func truncate(v float32) (int, bool) {
	if math32.IsNaN(v) || math32.IsInf(v, 0) {
		return 0, false
	}
	return int(math32.Trunc(v)), true
}

// Binarize builds a binary segmentation map.
//
// Each pixel is foreground (1) iff its value truncated to an integer equals
// foreground, otherwise background (0). Pixels are visited row by row.
//
// Arguments:
//   - pred: The raw prediction tensor.
//   - foreground: The raw value that marks the foreground class.
//
// Returns:
//   - Map: A Size×Size binary map.
func Binarize(pred PredictionTensor, foreground int) Map {
	d := pred.Size
	classes := make([]ClassIndex, d*d)
	for y := 0; y < d; y++ {
		for x := 0; x < d; x++ {
			i := y*d + x
			if v, ok := truncate(pred.Data[i]); ok && v == foreground {
				classes[i] = Foreground
			} else {
				classes[i] = Background
			}
		}
	}
	return Map{Width: d, Height: d, Classes: classes}
}

// MultiClass builds a map whose entries are the truncated prediction values.
// Values outside [0, numClasses) are reported as background.
//
// Arguments:
//   - pred: The raw prediction tensor.
//   - numClasses: The vocabulary size.
//
// Returns:
//   - Map: A Size×Size class map.
func MultiClass(pred PredictionTensor, numClasses int) Map {
	d := pred.Size
	classes := make([]ClassIndex, d*d)
	for y := 0; y < d; y++ {
		for x := 0; x < d; x++ {
			i := y*d + x
			if v, ok := truncate(pred.Data[i]); ok && v >= 0 && v < numClasses {
				classes[i] = ClassIndex(v)
			}
		}
	}
	return Map{Width: d, Height: d, Classes: classes}
}

// BinaryClassSet returns the fixed {background, foreground} set reported in
// binary mode regardless of map content.
func BinaryClassSet() ClassSet {
	return ClassSet{Background, Foreground}
}

// ScanClassSet returns the classes actually present in m.
func ScanClassSet(m Map) ClassSet {
	seen := make(map[ClassIndex]struct{})
	for _, c := range m.Classes {
		seen[c] = struct{}{}
	}
	set := make(ClassSet, 0, len(seen))
	for c := range seen {
		set = append(set, c)
	}
	sort.Slice(set, func(i, j int) bool { return set[i] < set[j] })
	return set
}

// Colorize maps every entry of m to its packed palette color.
//
// Arguments:
//   - m: The class map.
//   - p: The palette; indices wrap modulo its length.
//
// Returns:
//   - []uint32: One packed pixel per map entry, same order as m.
func Colorize(m Map, p Palette) []uint32 {
	packed := make([]uint32, len(p))
	for i, c := range p {
		packed[i] = Pack(c)
	}

	buf := make([]uint32, len(m.Classes))
	for i, c := range m.Classes {
		buf[i] = packed[p.index(c)]
	}
	return buf
}

// Output is everything a Processor derives from one prediction tensor.
type Output struct {
	Map     Map
	Buffer  []uint32
	Classes ClassSet
}

// Processor converts prediction tensors into maps, visualization buffers and
// class sets.
type Processor struct {
	// Mode selects binary or multi-class interpretation. Empty means binary.
	Mode Mode
	// ForegroundValue is the raw value treated as foreground in binary mode.
	ForegroundValue int
	// NumClasses bounds class indices in multi-class mode.
	NumClasses int
	// Palette colors classes. Empty means DefaultPalette.
	Palette Palette
	// ScanClassSet reports the classes present in the map instead of the fixed
	// binary set.
	ScanClassSet bool
}

// Process runs the configured postprocessing on pred. It has no side effects.
func (p Processor) Process(pred PredictionTensor) Output {
	palette := p.Palette
	if len(palette) == 0 {
		palette = DefaultPalette()
	}

	var (
		m       Map
		classes ClassSet
	)
	switch p.Mode {
	case ModeMultiClass:
		m = MultiClass(pred, p.NumClasses)
		classes = ScanClassSet(m)
	default:
		m = Binarize(pred, p.ForegroundValue)
		if p.ScanClassSet {
			classes = ScanClassSet(m)
		} else {
			classes = BinaryClassSet()
		}
	}

	return Output{
		Map:     m,
		Buffer:  Colorize(m, palette),
		Classes: classes,
	}
}
