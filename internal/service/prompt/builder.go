package prompt

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed config/prompts.yaml
var configFiles embed.FS

// Known action tokens
const (
	ActionRephrase    = "rephrase"
	ActionPersonalize = "personalize"
	ActionShakespeare = "shakespeare"
)

// Prompt is the pair of messages for one generation call
type Prompt struct {
	System string
	User   string
	// Kind names the template used: an action token, "custom" or "default"
	Kind string
}

// catalog mirrors config/prompts.yaml
type catalog struct {
	Default      string            `yaml:"default"`
	CustomPrefix string            `yaml:"custom_prefix"`
	Custom       string            `yaml:"custom"`
	Actions      map[string]string `yaml:"actions"`
	Suggestions  string            `yaml:"suggestions"`
}

// templateData is what every template can reference
type templateData struct {
	Prompt      string
	Instruction string
}

// Builder maps an action token and user text to a system instruction.
// It holds only parsed templates, so Build is deterministic and side-effect free.
type Builder struct {
	def          *template.Template
	custom       *template.Template
	customPrefix string
	actions      map[string]*template.Template
	suggestions  *template.Template
}

// NewBuilder loads the embedded prompt catalog
func NewBuilder() (*Builder, error) {
	data, err := configFiles.ReadFile("config/prompts.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt catalog: %w", err)
	}
	return NewBuilderFromYAML(data)
}

// NewBuilderFromYAML parses a catalog and checks every template executes
func NewBuilderFromYAML(data []byte) (*Builder, error) {
	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompt catalog: %w", err)
	}
	if strings.TrimSpace(c.Default) == "" {
		return nil, fmt.Errorf("prompt catalog: default template is required")
	}
	if strings.TrimSpace(c.Suggestions) == "" {
		return nil, fmt.Errorf("prompt catalog: suggestions template is required")
	}

	b := &Builder{
		customPrefix: strings.ToLower(c.CustomPrefix),
		actions:      make(map[string]*template.Template, len(c.Actions)),
	}

	var err error
	if b.def, err = parse("default", c.Default); err != nil {
		return nil, err
	}
	if b.suggestions, err = parse("suggestions", c.Suggestions); err != nil {
		return nil, err
	}
	if c.Custom != "" && b.customPrefix != "" {
		if b.custom, err = parse("custom", c.Custom); err != nil {
			return nil, err
		}
	}
	for name, text := range c.Actions {
		key := strings.ToLower(strings.TrimSpace(name))
		if b.actions[key], err = parse(key, text); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// parse compiles a template and executes it once so that Build cannot fail later
func parse(name, text string) (*template.Template, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("prompt template %q: %w", name, err)
	}
	if _, err := execute(t, templateData{}); err != nil {
		return nil, fmt.Errorf("prompt template %q: %w", name, err)
	}
	return t, nil
}

func execute(t *template.Template, data templateData) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(sb.String()), nil
}

// Build returns the prompt for action applied to userText.
// Unknown or empty actions, and a custom prefix with no instruction, use the
// default "answer completely, ask nothing" instruction.
func (b *Builder) Build(action, userText string) (Prompt, error) {
	token := strings.TrimSpace(action)
	lower := strings.ToLower(token)

	t, kind, data := b.def, "default", templateData{Prompt: userText}
	switch {
	case b.actions[lower] != nil:
		t, kind = b.actions[lower], lower
	case b.hasCustomPrefix(token):
		// keep the instruction's original casing
		if instruction := strings.TrimSpace(token[len(b.customPrefix):]); instruction != "" {
			t, kind = b.custom, "custom"
			data.Instruction = instruction
		}
	}

	system, err := execute(t, data)
	if err != nil {
		return Prompt{}, fmt.Errorf("build %s prompt: %w", kind, err)
	}
	return Prompt{System: system, User: userText, Kind: kind}, nil
}

func (b *Builder) hasCustomPrefix(token string) bool {
	n := len(b.customPrefix)
	return b.custom != nil && len(token) >= n && strings.EqualFold(token[:n], b.customPrefix)
}

// Suggestions returns the prompt asking for follow-up actions. The previous
// answer is the user message, so the call depends on the first one's output.
func (b *Builder) Suggestions(userText, answer string) (Prompt, error) {
	system, err := execute(b.suggestions, templateData{Prompt: userText})
	if err != nil {
		return Prompt{}, fmt.Errorf("build suggestions prompt: %w", err)
	}
	return Prompt{System: system, User: answer, Kind: "suggestions"}, nil
}

// Actions lists the known action tokens, sorted
func (b *Builder) Actions() []string {
	names := make([]string, 0, len(b.actions))
	for name := range b.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
