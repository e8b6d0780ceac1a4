// Package prompts renders the instructions sent to the language model.
// Built-in templates can be replaced by files named prompts/<name>.tmpl in a
// storage backend.
package prompts

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"path"
	"text/template"

	"github.com/lewisedginton/attendance_bot/internal/storage"
	"github.com/lewisedginton/attendance_bot/pkg/logger"
)

// Template names.
const (
	Classify = "classify"
	Extract  = "extract"
	Query    = "query"
)

const overrideDir = "prompts"

//go:embed templates/*.tmpl
var builtin embed.FS

// Names lists every template the bot renders.
var Names = []string{Classify, Extract, Query}

// ClassifyData feeds the classify template.
type ClassifyData struct {
	Message string
}

// Weekday is a "next <weekday>" reference date.
type Weekday struct {
	Name string
	Date string
}

// ExtractData feeds the extract template. Dates are YYYY-MM-DD with a
// weekday suffix where useful.
type ExtractData struct {
	Message   string
	Now       string
	Timezone  string
	Today     string
	Tomorrow  string
	Yesterday string
	NextWeek  string
	NextMonth string
	Weekdays  []Weekday
}

// QueryData feeds the query template.
type QueryData struct {
	Query    string
	Today    string
	Tomorrow string
	Weekday  string
	Month    string
	Timezone string
}

// Manager holds parsed templates.
type Manager struct {
	templates map[string]*template.Template
}

// Load parses the built-in templates, then any overrides found in provider.
// provider may be nil.
func Load(ctx context.Context, provider storage.FileProvider, log logger.Logger) (*Manager, error) {
	m := &Manager{templates: make(map[string]*template.Template, len(Names))}

	for _, name := range Names {
		src, err := builtin.ReadFile(path.Join("templates", name+".tmpl"))
		if err != nil {
			return nil, fmt.Errorf("missing built-in prompt %s: %w", name, err)
		}

		if provider != nil {
			override, err := provider.Read(ctx, path.Join(overrideDir, name+".tmpl"))
			switch {
			case err == nil:
				log.Info("Using prompt override", logger.StringField("prompt", name))
				src = override
			case !errors.Is(err, storage.ErrNotFound):
				return nil, fmt.Errorf("failed to read prompt override %s: %w", name, err)
			}
		}

		tmpl, err := template.New(name).Option("missingkey=error").Parse(string(src))
		if err != nil {
			return nil, fmt.Errorf("failed to parse prompt %s: %w", name, err)
		}
		m.templates[name] = tmpl
	}
	return m, nil
}

// Default returns a Manager with only the built-in templates.
func Default() *Manager {
	m, err := Load(context.Background(), nil, logger.NewNopLogger())
	if err != nil {
		panic(err)
	}
	return m
}

// Render executes the named template with data.
func (m *Manager) Render(name string, data any) (string, error) {
	tmpl, ok := m.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

// Builtin returns the source of a built-in template, for seeding overrides.
func Builtin(name string) ([]byte, error) {
	return builtin.ReadFile(path.Join("templates", name+".tmpl"))
}
