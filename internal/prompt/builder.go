package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"path/filepath"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/kapu/reader-sim-go/internal/domain"
)

//go:embed templates/*.yaml
var templateFS embed.FS

type TemplateName string

const (
	TemplateTitleGeneration        TemplateName = "title_generation.yaml"
	TemplateInformationEnrichment  TemplateName = "information_enrichment.yaml"
	TemplateInformationSufficiency TemplateName = "information_sufficiency.yaml"
	TemplateReviewComment          TemplateName = "review_comment.yaml"
	TemplateReviewTags             TemplateName = "review_tags.yaml"
	TemplateReviewSuggestions      TemplateName = "review_suggestions.yaml"
	TemplateReviewScore            TemplateName = "review_score.yaml"
)

// Prompt is a rendered system/user pair for one completion.
type Prompt struct {
	System string
	User   string
}

type rawPrompt struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

type promptTemplate struct {
	system *template.Template
	user   *template.Template
}

// localizedTemplates is keyed by language; English is always present.
type localizedTemplates map[domain.Language]*promptTemplate

type PromptBuilder struct {
	mu        sync.RWMutex
	templates map[TemplateName]localizedTemplates
}

var (
	defaultBuilderOnce sync.Once
	defaultBuilder     *PromptBuilder
)

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{
		templates: make(map[TemplateName]localizedTemplates),
	}
}

func DefaultPromptBuilder() *PromptBuilder {
	defaultBuilderOnce.Do(func() {
		defaultBuilder = NewPromptBuilder()
	})
	return defaultBuilder
}

// Render fills the named template in the requested language, falling back to
// English when the language has no entry.
func (pb *PromptBuilder) Render(name TemplateName, lang domain.Language, data any) (Prompt, error) {
	set, err := pb.getTemplate(name)
	if err != nil {
		return Prompt{}, err
	}

	tmpl, ok := set[lang]
	if !ok {
		tmpl = set[domain.LanguageEnglish]
	}

	var system, user bytes.Buffer
	if err := tmpl.system.Execute(&system, data); err != nil {
		return Prompt{}, fmt.Errorf("render prompt %s (%s) system: %w", name, lang, err)
	}
	if err := tmpl.user.Execute(&user, data); err != nil {
		return Prompt{}, fmt.Errorf("render prompt %s (%s) user: %w", name, lang, err)
	}

	return Prompt{System: system.String(), User: user.String()}, nil
}

func (pb *PromptBuilder) getTemplate(name TemplateName) (localizedTemplates, error) {
	pb.mu.RLock()
	if set, ok := pb.templates[name]; ok {
		pb.mu.RUnlock()
		return set, nil
	}
	pb.mu.RUnlock()

	filename := filepath.ToSlash(filepath.Join("templates", string(name)))
	content, err := templateFS.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("load prompt template %s: %w", name, err)
	}

	var raw map[domain.Language]rawPrompt
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("decode prompt template %s: %w", name, err)
	}
	if _, ok := raw[domain.LanguageEnglish]; !ok {
		return nil, fmt.Errorf("prompt template %s has no %q entry", name, domain.LanguageEnglish)
	}

	set := make(localizedTemplates, len(raw))
	for lang, rp := range raw {
		system, err := template.New(fmt.Sprintf("%s/%s/system", name, lang)).Parse(rp.System)
		if err != nil {
			return nil, fmt.Errorf("parse prompt template %s (%s) system: %w", name, lang, err)
		}
		user, err := template.New(fmt.Sprintf("%s/%s/user", name, lang)).Parse(rp.User)
		if err != nil {
			return nil, fmt.Errorf("parse prompt template %s (%s) user: %w", name, lang, err)
		}
		set[lang] = &promptTemplate{system: system, user: user}
	}

	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.templates[name] = set

	return set, nil
}
