// Package prompt turns a capture's analysis and its environment context into
// an image-generation prompt. It performs no I/O.
package prompt

import (
	"math/rand"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/yungbote/mumble-backend/internal/domain/artifact"
	"github.com/yungbote/mumble-backend/internal/domain/capture"
	"github.com/yungbote/mumble-backend/internal/domain/environment"
)

const (
	defaultSubject = "a person"
	sceneSubject   = "a scene"
	defaultAction  = "contemplating"
	genericPlace   = "a place"
)

type Input struct {
	Text            string
	Analysis        *capture.Analysis
	Context         *environment.ContextRecord
	StylePreference string
}

// Result is the prompt plus the decisions that produced it.
type Result struct {
	Prompt    string
	Family    string
	Style     string
	Subject   string
	Action    string
	Setting   string
	Technical string
}

// Synthesizer is safe for concurrent use. All randomness comes from rng.
type Synthesizer struct {
	vocab *Vocabulary

	mu  sync.Mutex
	rng *rand.Rand
}

// New uses the embedded vocabulary. A nil rng is replaced by a time-seeded one.
func New(rng *rand.Rand) *Synthesizer {
	return NewWithVocabulary(DefaultVocabulary(), rng)
}

func NewWithVocabulary(v *Vocabulary, rng *rand.Rand) *Synthesizer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if v == nil {
		v = DefaultVocabulary()
	}
	return &Synthesizer{vocab: v, rng: rng}
}

func (s *Synthesizer) Synthesize(in Input) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	sentiment := "neutral"
	var keywords []string
	if in.Analysis != nil {
		if v := normalize(in.Analysis.Sentiment); v != "" {
			sentiment = v
		}
		keywords = in.Analysis.Keywords
	}

	place, condition, timeOfDay := "", "Clear", "day"
	if in.Context != nil {
		place = strings.TrimSpace(in.Context.Location.PlaceName)
		if c := strings.TrimSpace(in.Context.Weather.Condition); c != "" {
			condition = c
		}
		if t := strings.TrimSpace(in.Context.Time.TimeOfDay); t != "" {
			timeOfDay = t
		}
	}

	family, style := s.selectStyle(sentiment, condition, timeOfDay, normalize(in.StylePreference))
	subject := s.extractSubject(in.Text, keywords)
	action := s.extractAction(in.Text, keywords)
	setting := s.buildSetting(place, condition, timeOfDay)
	ambience := s.buildAmbience(condition, timeOfDay)
	technical := s.selectTechnical(family)
	emotion := s.vocab.emotion(sentiment)

	body := strings.NewReplacer(
		"{style}", style,
		"{palette}", emotion.Color,
		"{lighting}", emotion.Light,
		"{composition}", emotion.Composition,
		"{subject}", subject,
		"{action}", action,
		"{setting}", setting,
		"{ambience}", ambience,
		"{technical}", technical,
	).Replace(s.vocab.template(sentiment))

	return Result{
		Prompt:    strings.Join([]string{body, s.vocab.Safety, s.vocab.Quality}, " "),
		Family:    family,
		Style:     style,
		Subject:   subject,
		Action:    action,
		Setting:   setting,
		Technical: technical,
	}
}

// selectStyle honours an explicit preference first, then the context.
func (s *Synthesizer) selectStyle(sentiment, condition, timeOfDay, preference string) (family, style string) {
	switch preference {
	case artifact.StyleRealistic:
		family = FamilyRealistic
	case artifact.StyleArtistic:
		family = FamilyImpressionist
	case artifact.StyleAbstract:
		family = FamilyAbstract
	}

	if family == "" {
		switch {
		case condition == "Rain" || condition == "Drizzle":
			family = FamilyWatercolor
		case timeOfDay == environment.TimeOfDayNight:
			family = FamilyCyberpunk
		case sentiment == "positive" || sentiment == "excited" || sentiment == "happy":
			family = FamilyImpressionist
		case sentiment == "negative" || sentiment == "sad":
			family = FamilyExpressionist
		case sentiment == "calm" || sentiment == "peaceful":
			family = FamilyMinimalist
		}
	}
	if family != "" {
		return family, s.pick(s.vocab.Styles[family])
	}

	// Uniform over every style in the general-purpose families.
	general := []string{FamilyRealistic, FamilyImpressionist, FamilyWatercolor, FamilyMinimalist}
	total := 0
	for _, f := range general {
		total += len(s.vocab.Styles[f])
	}
	n := s.rng.Intn(total)
	for _, f := range general {
		if n < len(s.vocab.Styles[f]) {
			return f, s.vocab.Styles[f][n]
		}
		n -= len(s.vocab.Styles[f])
	}
	return FamilyRealistic, s.vocab.Styles[FamilyRealistic][0]
}

func (s *Synthesizer) extractSubject(text string, keywords []string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return defaultSubject
	}

	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw != "" && !s.isEnvironmental(kw) {
			return kw
		}
	}

	tokens := tokenize(text)
	for _, subj := range s.vocab.Subjects {
		if containsWord(tokens, subj) {
			mod := s.pick(s.vocab.SubjectModifiers)
			return article(mod) + " " + mod + " " + subj
		}
	}

	if utf8.RuneCountInString(text) < 10 {
		return defaultSubject
	}
	return sceneSubject
}

func (s *Synthesizer) extractAction(text string, keywords []string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return defaultAction
	}

	tokens := tokenize(text)
	if a, ok := s.matchAction(tokens); ok {
		return a
	}
	if len(keywords) > 1 {
		for _, kw := range keywords {
			if a, ok := s.matchAction(tokenize(kw)); ok {
				return a
			}
		}
	}

	if utf8.RuneCountInString(text) < 15 {
		return defaultAction
	}
	for _, inf := range s.vocab.InferredActions {
		for _, cue := range inf.Cues {
			if hasPrefixWord(tokens, cue) {
				return inf.Action
			}
		}
	}
	return s.pick(s.vocab.DefaultActions)
}

func (s *Synthesizer) matchAction(tokens []string) (string, bool) {
	for _, aw := range s.vocab.Actions {
		if hasPrefixWord(tokens, aw.Word) {
			return aw.Action, true
		}
	}
	return "", false
}

func (s *Synthesizer) isEnvironmental(keyword string) bool {
	kw := strings.ToLower(keyword)
	for _, w := range s.vocab.EnvironmentalKeywords {
		if strings.Contains(kw, w) {
			return true
		}
	}
	return false
}

func (s *Synthesizer) buildSetting(place, condition, timeOfDay string) string {
	if place == "" || place == environment.UnknownPlace {
		place = genericPlace
	}
	w := s.pick(s.vocab.weatherWords(condition))
	t := s.pick(s.vocab.timeWords(timeOfDay))
	return "in " + place + ", amid " + w + " and " + t
}

func (s *Synthesizer) buildAmbience(condition, timeOfDay string) string {
	w := s.pick(s.vocab.weatherWords(condition))
	t := s.pick(s.vocab.timeWords(timeOfDay))
	variants := []string{
		w + " and " + t,
		"the light of " + t + " and the mood of " + w,
		"an atmosphere of " + w + " under " + t,
		t + " falling across " + w,
	}
	return s.pick(variants)
}

func (s *Synthesizer) selectTechnical(family string) string {
	params := []string{s.vocab.Technical.Base}
	params = append(params, s.vocab.technicalFor(family)...)

	extras := 1 + s.rng.Intn(2)
	for i := 0; i < extras; i++ {
		p := s.pick(s.vocab.Technical.Extras)
		if !slices.Contains(params, p) {
			params = append(params, p)
		}
	}

	s.rng.Shuffle(len(params), func(i, j int) { params[i], params[j] = params[j], params[i] })
	return strings.Join(params, ", ")
}

func (s *Synthesizer) pick(xs []string) string {
	if len(xs) == 0 {
		return ""
	}
	return xs[s.rng.Intn(len(xs))]
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// containsWord matches a whole word or its simple plural.
func containsWord(tokens []string, word string) bool {
	for _, t := range tokens {
		if t == word || t == word+"s" {
			return true
		}
	}
	return false
}

func hasPrefixWord(tokens []string, prefix string) bool {
	for _, t := range tokens {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	return false
}

func article(word string) string {
	if word != "" && strings.ContainsRune("aeiou", rune(word[0])) {
		return "an"
	}
	return "a"
}
