// Package catalog holds the descriptive records of the artworks that the
// reference images depict, keyed by reference label.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrNotFound = errors.New("artwork not found")

// Artwork describes one artwork. Label matches the reference label of the
// index.
type Artwork struct {
	Label       string `yaml:"label" json:"label" bson:"label"`
	Title       string `yaml:"title" json:"title" bson:"title"`
	Artist      string `yaml:"artist" json:"artist" bson:"artist"`
	Year        int    `yaml:"year,omitempty" json:"year,omitempty" bson:"year,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty" bson:"description,omitempty"`
	Location    string `yaml:"location,omitempty" json:"location,omitempty" bson:"location,omitempty"`
	Style       string `yaml:"style,omitempty" json:"style,omitempty" bson:"style,omitempty"`
}

// Store looks up artworks by label.
type Store interface {
	Get(ctx context.Context, label string) (*Artwork, error)
}

var (
	_ Store = (*Memory)(nil)
	_ Store = Chain(nil)
)

// Memory is a read-only in-memory store.
type Memory struct {
	records map[string]Artwork
	order   []string
}

// NewMemory returns a store of the given artworks. Later records replace
// earlier ones with the same label.
func NewMemory(artworks ...Artwork) *Memory {
	m := &Memory{records: make(map[string]Artwork, len(artworks))}
	for _, artwork := range artworks {
		label := strings.ToLower(artwork.Label)
		if _, ok := m.records[label]; !ok {
			m.order = append(m.order, label)
		}
		artwork.Label = label
		m.records[label] = artwork
	}
	return m
}

func (m *Memory) Get(_ context.Context, label string) (*Artwork, error) {
	artwork, ok := m.records[label]
	if !ok {
		return nil, fmt.Errorf("%s: %w", label, ErrNotFound)
	}
	return &artwork, nil
}

// All returns the records in insertion order.
func (m *Memory) All() []Artwork {
	all := make([]Artwork, 0, len(m.order))
	for _, label := range m.order {
		all = append(all, m.records[label])
	}
	return all
}

// Chain queries its stores in order and returns the first record found.
type Chain []Store

func (c Chain) Get(ctx context.Context, label string) (*Artwork, error) {
	var errs []error
	for _, store := range c {
		artwork, err := store.Get(ctx, label)
		if err == nil {
			return artwork, nil
		}
		if !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, fmt.Errorf("%s: %w", label, ErrNotFound)
}

// LoadFile reads a YAML list of artworks.
func LoadFile(path string) ([]Artwork, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var artworks []Artwork
	if err := yaml.Unmarshal(data, &artworks); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	for position, artwork := range artworks {
		if artwork.Label == "" {
			return nil, fmt.Errorf("parse catalog: record %d has no label", position)
		}
	}

	return artworks, nil
}

// Builtin returns the records of the four reference paintings shipped with
// the default reference directory.
func Builtin() []Artwork {
	return []Artwork{
		{
			Label:       "monalisa",
			Title:       "Mona Lisa",
			Artist:      "Leonardo da Vinci",
			Year:        1503,
			Description: "Portrait of Lisa Gherardini, famed for the enigmatic smile.",
			Location:    "Louvre Museum, Paris",
			Style:       "Renaissance",
		},
		{
			Label:       "the_last_supper",
			Title:       "The Last Supper",
			Artist:      "Leonardo da Vinci",
			Year:        1498,
			Description: "Jesus with the Twelve Apostles, the betrayal moment.",
			Location:    "Santa Maria delle Grazie, Milan",
			Style:       "Renaissance",
		},
		{
			Label:       "the_scream",
			Title:       "The Scream",
			Artist:      "Edvard Munch",
			Year:        1893,
			Description: "Expressionist depiction of anxiety and existential dread.",
			Location:    "National Gallery, Oslo",
			Style:       "Expressionism",
		},
		{
			Label:       "the_starry_night",
			Title:       "The Starry Night",
			Artist:      "Vincent van Gogh",
			Year:        1889,
			Description: "Swirling night sky painted from memory at Saint-Rémy.",
			Location:    "MoMA, New York",
			Style:       "Post-Impressionism",
		},
	}
}
