package prompt

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

const (
	FamilyRealistic     = "realistic"
	FamilyImpressionist = "impressionist"
	FamilyAbstract      = "abstract"
	FamilyWatercolor    = "watercolor"
	FamilyCyberpunk     = "cyberpunk"
	FamilyExpressionist = "expressionist"
	FamilyMinimalist    = "minimalist"
)

var allFamilies = []string{
	FamilyRealistic,
	FamilyImpressionist,
	FamilyAbstract,
	FamilyWatercolor,
	FamilyCyberpunk,
	FamilyExpressionist,
	FamilyMinimalist,
}

var templateKeys = []string{"positive", "negative", "calm", "surprised", "angry", "default"}

//go:embed vocab.yaml
var defaultVocabYAML []byte

type Emotion struct {
	Color       string `yaml:"color"`
	Light       string `yaml:"light"`
	Composition string `yaml:"composition"`
}

type ActionWord struct {
	Word   string `yaml:"word"`
	Action string `yaml:"action"`
}

type InferredAction struct {
	Action string   `yaml:"action"`
	Cues   []string `yaml:"cues"`
}

type Technical struct {
	Base     string              `yaml:"base"`
	Families map[string][]string `yaml:"families"`
	Fallback []string            `yaml:"fallback"`
	Extras   []string            `yaml:"extras"`
}

// Vocabulary holds every word table the synthesizer draws from.
type Vocabulary struct {
	Styles                map[string][]string `yaml:"styles"`
	Weather               map[string][]string `yaml:"weather"`
	Time                  map[string][]string `yaml:"time"`
	Emotions              map[string]Emotion  `yaml:"emotions"`
	EnvironmentalKeywords []string            `yaml:"environmental_keywords"`
	Subjects              []string            `yaml:"subjects"`
	SubjectModifiers      []string            `yaml:"subject_modifiers"`
	Actions               []ActionWord        `yaml:"actions"`
	InferredActions       []InferredAction    `yaml:"inferred_actions"`
	DefaultActions        []string            `yaml:"default_actions"`
	Technical             Technical           `yaml:"technical"`
	Templates             map[string]string   `yaml:"templates"`
	TemplateGroups        map[string][]string `yaml:"template_groups"`
	Safety                string              `yaml:"safety"`
	Quality               string              `yaml:"quality"`

	templateFor map[string]string
}

var defaultVocab = mustLoadVocabulary(defaultVocabYAML)

// DefaultVocabulary returns the tables compiled into the binary.
func DefaultVocabulary() *Vocabulary { return defaultVocab }

func mustLoadVocabulary(raw []byte) *Vocabulary {
	v, err := LoadVocabulary(raw)
	if err != nil {
		panic(fmt.Sprintf("prompt: embedded vocabulary: %v", err))
	}
	return v
}

func LoadVocabulary(raw []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}
	if err := v.validate(); err != nil {
		return nil, err
	}
	v.templateFor = map[string]string{}
	for key, sentiments := range v.TemplateGroups {
		for _, s := range sentiments {
			v.templateFor[s] = key
		}
	}
	return &v, nil
}

func (v *Vocabulary) validate() error {
	for _, f := range allFamilies {
		if len(v.Styles[f]) == 0 {
			return fmt.Errorf("vocabulary: style family %q is empty", f)
		}
	}
	if len(v.Weather["Clear"]) == 0 {
		return fmt.Errorf("vocabulary: weather.Clear is required")
	}
	if len(v.Time["day"]) == 0 {
		return fmt.Errorf("vocabulary: time.day is required")
	}
	if _, ok := v.Emotions["neutral"]; !ok {
		return fmt.Errorf("vocabulary: emotions.neutral is required")
	}
	if len(v.SubjectModifiers) == 0 || len(v.DefaultActions) == 0 {
		return fmt.Errorf("vocabulary: subject_modifiers and default_actions are required")
	}
	if len(v.Technical.Extras) < 2 || v.Technical.Base == "" {
		return fmt.Errorf("vocabulary: technical.base and at least two technical.extras are required")
	}
	for _, k := range templateKeys {
		if v.Templates[k] == "" {
			return fmt.Errorf("vocabulary: template %q is missing", k)
		}
	}
	return nil
}

func (v *Vocabulary) template(sentiment string) string {
	if key, ok := v.templateFor[sentiment]; ok {
		return v.Templates[key]
	}
	return v.Templates["default"]
}

func (v *Vocabulary) emotion(sentiment string) Emotion {
	if e, ok := v.Emotions[sentiment]; ok {
		return e
	}
	return v.Emotions["neutral"]
}

func (v *Vocabulary) weatherWords(condition string) []string {
	if w := v.Weather[condition]; len(w) > 0 {
		return w
	}
	return v.Weather["Clear"]
}

func (v *Vocabulary) timeWords(timeOfDay string) []string {
	if t := v.Time[timeOfDay]; len(t) > 0 {
		return t
	}
	return v.Time["day"]
}

func (v *Vocabulary) technicalFor(family string) []string {
	if p, ok := v.Technical.Families[family]; ok {
		return p
	}
	return v.Technical.Fallback
}
