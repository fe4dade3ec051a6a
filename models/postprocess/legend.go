package postprocess

import (
	"fmt"
	"image/color"
)

// LegendEntry pairs a class with its label and display color.
type LegendEntry struct {
	Class ClassIndex
	Label string
	Color color.RGBA
}

// Legend lists the classes of a ClassSet in ascending class order.
type Legend []LegendEntry

// NewLegend builds the legend for set. Classes without a label are named by
// their index.
//
// Arguments:
//   - set: The classes to include.
//   - labels: Index-aligned class names.
//   - p: The palette used for the visualization buffer.
//
// Returns:
//   - Legend: One entry per class in set.
func NewLegend(set ClassSet, labels []string, p Palette) Legend {
	legend := make(Legend, 0, len(set))
	for _, c := range set {
		label := fmt.Sprintf("class_%d", c)
		if int(c) >= 0 && int(c) < len(labels) {
			label = labels[c]
		}
		legend = append(legend, LegendEntry{Class: c, Label: label, Color: p.Color(c)})
	}
	return legend
}

// Colors returns the legend as a label to color mapping.
func (l Legend) Colors() map[string]color.RGBA {
	out := make(map[string]color.RGBA, len(l))
	for _, e := range l {
		out[e.Label] = e.Color
	}
	return out
}

// Labels returns the legend labels in order.
func (l Legend) Labels() []string {
	out := make([]string, len(l))
	for i, e := range l {
		out[i] = e.Label
	}
	return out
}

// ClassLabels returns the label for each class index the processor emits.
// In binary mode index 0 keeps the background label and index 1 takes the
// label of the foreground value; in multi-class mode labels pass through.
func (p Processor) ClassLabels(labels []string) []string {
	if p.Mode == ModeMultiClass {
		return labels
	}
	out := []string{"background", "foreground"}
	if len(labels) > 0 {
		out[0] = labels[0]
	}
	if p.ForegroundValue >= 0 && p.ForegroundValue < len(labels) {
		out[1] = labels[p.ForegroundValue]
	}
	return out
}
