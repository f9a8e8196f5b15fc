package messaging

import (
	"embed"
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

// DefaultLanguage is used when a request names no language or one without templates
const DefaultLanguage = "es"

//go:embed templates/*.tmpl
var templateFS embed.FS

var languages = []string{"es", "en"}

type templates map[string]*template.Template

func parseTemplates() (templates, error) {
	t := templates{}
	for _, lang := range languages {
		set, err := template.ParseFS(templateFS, "templates/"+lang+".tmpl")
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s templates", lang)
		}
		t[lang] = set
	}
	return t, nil
}

func (t templates) render(lang string, name string, data interface{}) (string, error) {
	set, ok := t[strings.ToLower(lang)]
	if !ok {
		set = t[DefaultLanguage]
	}
	var b strings.Builder
	if err := set.ExecuteTemplate(&b, name, data); err != nil {
		return "", errors.Wrapf(err, "rendering %s", name)
	}
	return strings.TrimSpace(b.String()), nil
}
