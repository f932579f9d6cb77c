// Package describe generates artwork records with a hosted language model
// for labels the catalog does not know.
package describe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"charm.land/fantasy"
	"charm.land/fantasy/providers/anthropic"
	"charm.land/fantasy/providers/openai"
	"charm.land/fantasy/providers/openrouter"
	"charm.land/fantasy/schema"

	"github.com/artlens/orbmatch/internal/catalog"
)

var ErrNoProvider = errors.New("no description provider configured")

type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
}

// ObjectGenerator fills target with a structured answer to prompt.
type ObjectGenerator interface {
	GenerateObject(ctx context.Context, prompt string, target any) error
}

var _ ObjectGenerator = (*FantasyProvider)(nil)

type FantasyProvider struct {
	model fantasy.LanguageModel
	name  string
}

func NewFantasyProvider(ctx context.Context, cfg Config) (*FantasyProvider, error) {
	var provider fantasy.Provider
	var err error

	switch cfg.Provider {
	case "openai":
		opts := []openai.Option{openai.WithAPIKey(cfg.APIKey)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		provider, err = openai.New(opts...)

	case "anthropic":
		opts := []anthropic.Option{anthropic.WithAPIKey(cfg.APIKey)}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		provider, err = anthropic.New(opts...)

	case "openrouter":
		provider, err = openrouter.New(openrouter.WithAPIKey(cfg.APIKey))

	case "":
		return nil, ErrNoProvider

	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}

	model, err := provider.LanguageModel(ctx, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("get language model: %w", err)
	}

	return &FantasyProvider{model: model, name: cfg.Provider}, nil
}

func (p *FantasyProvider) Name() string { return p.name }

func (p *FantasyProvider) GenerateObject(ctx context.Context, prompt string, target any) error {
	t := reflect.TypeOf(target)
	if t.Kind() != reflect.Ptr {
		return fmt.Errorf("target must be a pointer")
	}

	call := fantasy.ObjectCall{
		Prompt: fantasy.Prompt{fantasy.NewUserMessage(prompt)},
		Schema: schema.Generate(t.Elem()),
	}

	resp, err := p.model.GenerateObject(ctx, call)
	if err != nil {
		return fmt.Errorf("generate object: %w", err)
	}

	// The object comes back either typed or as decoded JSON.
	data, err := json.Marshal(resp.Object)
	if err != nil {
		return fmt.Errorf("encode object: %w", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode object: %w", err)
	}

	return nil
}

// Describer turns a reference label into an artwork record.
type Describer struct {
	generator ObjectGenerator
}

var _ catalog.Store = (*Describer)(nil)

func New(generator ObjectGenerator) *Describer {
	return &Describer{generator: generator}
}

// Prompt returns the instruction sent for label.
func Prompt(label string) string {
	title := strings.ReplaceAll(label, "_", " ")
	return fmt.Sprintf("Identify the artwork commonly known as %q. "+
		"Return its title, artist, year of completion, current location, style "+
		"and a one sentence description for a museum visitor. "+
		"Leave a field empty when unsure.", title)
}

// Get implements catalog.Store so a Describer can close a catalog chain.
func (d *Describer) Get(ctx context.Context, label string) (*catalog.Artwork, error) {
	var artwork catalog.Artwork
	if err := d.generator.GenerateObject(ctx, Prompt(label), &artwork); err != nil {
		return nil, fmt.Errorf("describe %s: %w", label, err)
	}
	if artwork.Title == "" {
		return nil, fmt.Errorf("describe %s: %w", label, catalog.ErrNotFound)
	}
	artwork.Label = label
	return &artwork, nil
}
