package postprocess

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLegend(t *testing.T) {
	labels := []string{"background", "person"}
	legend := NewLegend(BinaryClassSet(), labels, Palette{c0, c1})

	assert.Equal(t, []string{"background", "person"}, legend.Labels())
	assert.Equal(t, map[string]color.RGBA{"background": c0, "person": c1}, legend.Colors())
}

func TestNewLegendReusesColors(t *testing.T) {
	labels := []string{"a", "b", "c", "d", "e"}
	legend := NewLegend(ClassSet{0, 2, 3, 4}, labels, Palette{c0, c1})

	assert.Equal(t, []string{"a", "c", "d", "e"}, legend.Labels())
	for _, e := range legend {
		assert.Equal(t, Palette{c0, c1}[int(e.Class)%2], e.Color)
	}
	assert.LessOrEqual(t, len(distinct(legend)), 2)
}

func TestNewLegendUnknownLabel(t *testing.T) {
	legend := NewLegend(ClassSet{0, 7}, []string{"background"}, Palette{c0})
	assert.Equal(t, []string{"background", "class_7"}, legend.Labels())
}

func TestClassLabels(t *testing.T) {
	voc := make([]string, 21)
	for i := range voc {
		voc[i] = "c"
	}
	voc[0] = "background"
	voc[15] = "person"

	p := Processor{ForegroundValue: 15}
	assert.Equal(t, []string{"background", "person"}, p.ClassLabels(voc))

	p = Processor{Mode: ModeMultiClass}
	assert.Equal(t, voc, p.ClassLabels(voc))

	p = Processor{ForegroundValue: 40}
	assert.Equal(t, []string{"background", "foreground"}, p.ClassLabels(voc))
}

func distinct(l Legend) map[color.RGBA]struct{} {
	out := make(map[color.RGBA]struct{})
	for _, e := range l {
		out[e.Color] = struct{}{}
	}
	return out
}
