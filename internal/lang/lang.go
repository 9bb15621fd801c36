package lang

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Key names a user-facing text.
type Key string

const (
	InsufficientResources Key = "insufficient_resources"
	CodeReward            Key = "code_reward"
	CodeInvalid           Key = "code_invalid"
	CodeRepeated          Key = "code_repeated"
	GameNotRunning        Key = "game_not_running"
	MockScan              Key = "mock_scan"
	Discovered            Key = "discovered"
	PermissionDenied      Key = "permission_denied"
	InternalError         Key = "internal_error"
)

var texts = map[Key]string{
	InsufficientResources: `Insufficient resources to buy {{ .Item }}`,
	CodeReward:            `Code accepted: +{{ amount .Money }} money{{ if .Energy }}, +{{ amount .Energy }} energy{{ end }}`,
	CodeInvalid:           `That code is not valid`,
	CodeRepeated:          `Visit another outpost before scanning this one again`,
	GameNotRunning:        `The game is not running`,
	MockScan:              `*Poof* you got free energy!`,
	Discovered:            `You discovered {{ .Name | title }}!`,
	PermissionDenied:      `You are not allowed to do that`,
	InternalError:         `Internal error`,
}

// Texts renders the user-facing texts for one locale.
type Texts struct {
	tmpl *template.Template
}

// New parses every text for the given locale. Amounts are grouped the way
// the locale writes numbers.
func New(tag language.Tag) (*Texts, error) {
	p := message.NewPrinter(tag)

	funcs := sprig.TxtFuncMap()
	funcs["amount"] = func(v uint64) string {
		return p.Sprintf("%d", v)
	}

	root := template.New("").Funcs(funcs)
	for key, text := range texts {
		if _, err := root.New(string(key)).Parse(text); err != nil {
			return nil, fmt.Errorf("parsing text %s: %w", key, err)
		}
	}
	return &Texts{tmpl: root}, nil
}

// Render expands a text with data. Texts without fields accept nil.
func (t *Texts) Render(key Key, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.tmpl.ExecuteTemplate(&buf, string(key), data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", key, err)
	}
	return buf.String(), nil
}

// MustRender is Render for texts whose data is known to fit. It falls back to
// the key on failure.
func (t *Texts) MustRender(key Key, data any) string {
	s, err := t.Render(key, data)
	if err != nil {
		return string(key)
	}
	return s
}
