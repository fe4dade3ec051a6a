// Package labels - Class label catalogs for segmentation models.
//
// A catalog is loaded from a JSON array of strings where the position of each
// name is the class index the model emits for it.
package labels

import (
	_ "embed"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

//go:embed voc.json
var vocJSON []byte

// ErrInvalidLabelList is returned when a label resource is missing or malformed.
var ErrInvalidLabelList = errors.New("invalid label list")

// Catalog is an immutable, index-aligned list of class names.
type Catalog struct {
	names     []string
	nameToIdx map[string]int
}

// Parse decodes a JSON array of class names.
//
// Arguments:
//   - data: The raw JSON bytes.
//
// Returns:
//   - *Catalog: The parsed catalog.
//   - error: ErrInvalidLabelList (wrapped) if the document is not a non-empty
//     array of non-blank strings.
func Parse(data []byte) (*Catalog, error) {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, errors.Wrapf(ErrInvalidLabelList, "decode: %v", err)
	}
	return New(names)
}

// New builds a catalog from names, which must be non-empty and non-blank.
// The slice is copied.
func New(names []string) (*Catalog, error) {
	names = append([]string(nil), names...)
	if len(names) == 0 {
		return nil, errors.Wrap(ErrInvalidLabelList, "no labels")
	}

	idx := make(map[string]int, len(names))
	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			return nil, errors.Wrapf(ErrInvalidLabelList, "blank label at index %d", i)
		}
		// First occurrence wins for reverse lookups.
		if _, ok := idx[name]; !ok {
			idx[name] = i
		}
	}

	return &Catalog{names: names, nameToIdx: idx}, nil
}

// Read parses a catalog from r.
func Read(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidLabelList, "read: %v", err)
	}
	return Parse(data)
}

// Load parses the catalog stored at path.
//
// Arguments:
//   - path: Path to the JSON label file.
//
// Returns:
//   - *Catalog: The parsed catalog.
//   - error: ErrInvalidLabelList (wrapped) if the file is missing or malformed.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidLabelList, "load %s: %v", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, errors.WithMessagef(err, "load %s", path)
	}
	return c, nil
}

// VOC returns the bundled Pascal VOC catalog (21 entries, background first).
func VOC() *Catalog {
	c, err := Parse(vocJSON)
	if err != nil {
		panic(err)
	}
	return c
}

// Len returns the vocabulary size.
func (c *Catalog) Len() int {
	return len(c.names)
}

// Name returns the label for a class index.
func (c *Catalog) Name(idx int) (string, bool) {
	if idx < 0 || idx >= len(c.names) {
		return "", false
	}
	return c.names[idx], true
}

// Index returns the class index for a label.
func (c *Catalog) Index(name string) (int, bool) {
	idx, ok := c.nameToIdx[name]
	return idx, ok
}

// Names returns a copy of all labels in index order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}
