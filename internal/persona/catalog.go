// Package persona loads the reader panel used to review titles.
package persona

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kapu/reader-sim-go/internal/domain"
	"github.com/kapu/reader-sim-go/pkg/errors"
)

//go:embed personas.yaml
var builtinYAML []byte

type localizedText struct {
	Name            string   `yaml:"name"`
	Description     string   `yaml:"description"`
	Characteristics []string `yaml:"characteristics"`
}

type entry struct {
	ID       string                   `yaml:"id"`
	Category string                   `yaml:"category"`
	Icon     string                   `yaml:"icon"`
	Color    string                   `yaml:"color"`
	Text     map[string]localizedText `yaml:",inline"`
}

// Catalog is immutable once loaded and safe for concurrent use.
type Catalog struct {
	entries []entry
	byID    map[string]int
}

// Load reads a catalog from path, or the built-in panel when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(builtinYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Builtin returns the embedded panel.
func Builtin() *Catalog {
	c, err := Parse(builtinYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in persona catalog is invalid: %v", err))
	}
	return c
}

// Parse validates ids are unique and every persona has an English name.
func Parse(data []byte) (*Catalog, error) {
	var entries []entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode persona catalog: %w", err)
	}
	if len(entries) == 0 {
		return nil, errors.NewValidationError("persona catalog is empty", "personas", nil)
	}

	byID := make(map[string]int, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			return nil, errors.NewValidationError("persona without id", "id", i)
		}
		if _, dup := byID[e.ID]; dup {
			return nil, errors.NewValidationError("duplicate persona id", "id", e.ID)
		}
		en, ok := e.Text[string(domain.LanguageEnglish)]
		if !ok || strings.TrimSpace(en.Name) == "" {
			return nil, errors.NewValidationError("persona needs an English name", "en.name", e.ID)
		}
		byID[e.ID] = i
	}

	return &Catalog{entries: entries, byID: byID}, nil
}

func (e entry) persona(lang domain.Language) domain.Persona {
	text, ok := e.Text[string(lang)]
	if !ok {
		text = e.Text[string(domain.LanguageEnglish)]
	}
	return domain.Persona{
		ID:              e.ID,
		Name:            text.Name,
		Description:     text.Description,
		Characteristics: append([]string(nil), text.Characteristics...),
		Category:        e.Category,
		Color:           e.Color,
		Icon:            e.Icon,
	}
}

// All returns every persona in catalog order.
func (c *Catalog) All(lang domain.Language) []domain.Persona {
	out := make([]domain.Persona, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.persona(lang))
	}
	return out
}

func (c *Catalog) Get(id string, lang domain.Language) (domain.Persona, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Persona{}, false
	}
	return c.entries[i].persona(lang), true
}

// Select resolves ids in the given order, skipping duplicates. An empty id
// list selects the whole panel.
func (c *Catalog) Select(ids []string, lang domain.Language) ([]domain.Persona, error) {
	if len(ids) == 0 {
		return c.All(lang), nil
	}

	seen := make(map[string]struct{}, len(ids))
	out := make([]domain.Persona, 0, len(ids))
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		p, ok := c.Get(id, lang)
		if !ok {
			return nil, errors.NewValidationError("unknown persona", "personaIds", id)
		}
		seen[id] = struct{}{}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, errors.NewValidationError("no personas selected", "personaIds", ids)
	}
	return out, nil
}

// ByCategory filters by category; "" and "all" return everything.
func (c *Catalog) ByCategory(category string, lang domain.Language) []domain.Persona {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" || category == "all" {
		return c.All(lang)
	}

	out := make([]domain.Persona, 0)
	for _, e := range c.entries {
		if e.Category == category {
			out = append(out, e.persona(lang))
		}
	}
	return out
}

// Search matches term case-insensitively against name, description and
// characteristics in the given language.
func (c *Catalog) Search(term string, lang domain.Language) []domain.Persona {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return c.All(lang)
	}

	out := make([]domain.Persona, 0)
	for _, e := range c.entries {
		p := e.persona(lang)
		if matches(p, term) {
			out = append(out, p)
		}
	}
	return out
}

func matches(p domain.Persona, term string) bool {
	if strings.Contains(strings.ToLower(p.Name), term) || strings.Contains(strings.ToLower(p.Description), term) {
		return true
	}
	for _, ch := range p.Characteristics {
		if strings.Contains(strings.ToLower(ch), term) {
			return true
		}
	}
	return false
}

// Categories lists the distinct categories, sorted.
func (c *Catalog) Categories() []string {
	set := make(map[string]struct{})
	for _, e := range c.entries {
		if e.Category != "" {
			set[e.Category] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for cat := range set {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

func (c *Catalog) Len() int {
	return len(c.entries)
}
