// Package prompts loads and renders the engine's generation prompts from
// embedded Go templates. Templates are compiled once at startup so a
// malformed template fails process initialization, not a request.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Loader renders named prompt templates with parameters. It implements
// ports.TemplateLoader and is safe for concurrent use.
type Loader struct {
	mu      sync.RWMutex
	lenient *template.Template
	strict  *template.Template
}

// NewLoader parses all embedded templates in both lenient and strict
// missing-key modes. It returns an error if any template fails to parse.
func NewLoader() (*Loader, error) {
	lenient, err := template.New("prompts").
		Option("missingkey=zero").
		ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt templates: %w", err)
	}

	strict, err := template.New("prompts").
		Option("missingkey=error").
		ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt templates: %w", err)
	}

	return &Loader{lenient: lenient, strict: strict}, nil
}

// Load renders the named template with the given parameters. In strict
// mode a key referenced by the template but absent from params is an
// error; otherwise it renders as the zero value.
func (l *Loader) Load(name string, params map[string]any, strictMode bool) (string, error) {
	l.mu.RLock()
	root := l.lenient
	if strictMode {
		root = l.strict
	}
	l.mu.RUnlock()

	if !strings.HasSuffix(name, ".tmpl") {
		name += ".tmpl"
	}

	tmpl := root.Lookup(name)
	if tmpl == nil {
		return "", fmt.Errorf("prompt template %q not found", name)
	}

	if params == nil {
		params = map[string]any{}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("failed to render prompt template %q: %w", name, err)
	}

	return strings.TrimSpace(buf.String()), nil
}

// Names returns the available template names, for diagnostics.
func (l *Loader) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0)
	for _, t := range l.lenient.Templates() {
		if strings.HasSuffix(t.Name(), ".tmpl") {
			names = append(names, t.Name())
		}
	}
	return names
}
