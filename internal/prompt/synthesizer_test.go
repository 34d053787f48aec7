package prompt

import (
	"math/rand"
	"slices"
	"strings"
	"testing"

	"github.com/yungbote/mumble-backend/internal/domain/capture"
	"github.com/yungbote/mumble-backend/internal/domain/environment"
)

func seeded(seed int64) *Synthesizer {
	return New(rand.New(rand.NewSource(seed)))
}

func ctxWith(place, condition, timeOfDay string) *environment.ContextRecord {
	return &environment.ContextRecord{
		Location: environment.Location{PlaceName: place},
		Weather:  environment.Weather{Condition: condition},
		Time:     environment.TimeInfo{TimeOfDay: timeOfDay},
	}
}

func TestSynthesizeDeterministicForSeed(t *testing.T) {
	t.Parallel()
	in := Input{
		Text:     "a calm lake at sunrise",
		Analysis: &capture.Analysis{Sentiment: "calm", Keywords: []string{"lake", "sunrise"}, Themes: []string{"nature"}},
		Context:  ctxWith("Lucerne", "Clear", "dawn"),
	}
	for seed := int64(1); seed <= 5; seed++ {
		a := seeded(seed).Synthesize(in)
		b := seeded(seed).Synthesize(in)
		if a.Prompt != b.Prompt {
			t.Fatalf("seed %d: prompts differ:\n%s\n%s", seed, a.Prompt, b.Prompt)
		}
	}
}

func TestSynthesizeCalmLake(t *testing.T) {
	t.Parallel()
	v := DefaultVocabulary()
	res := seeded(42).Synthesize(Input{
		Text:     "a calm lake at sunrise",
		Analysis: &capture.Analysis{Sentiment: "calm", Keywords: []string{"lake", "sunrise"}},
		Context:  ctxWith("Lucerne", "Clear", "dawn"),
	})

	if res.Family != FamilyMinimalist {
		t.Fatalf("family: want=%s got=%s", FamilyMinimalist, res.Family)
	}
	if res.Subject != "lake" {
		t.Fatalf("subject: want=lake got=%q", res.Subject)
	}
	if !slices.Contains(v.DefaultActions, res.Action) {
		t.Fatalf("action: want one of %v got=%q", v.DefaultActions, res.Action)
	}
	if !strings.HasPrefix(res.Prompt, "A tranquil "+res.Style) {
		t.Fatalf("prompt should use the calm template: %s", res.Prompt)
	}
	if !strings.Contains(res.Prompt, "in Lucerne, amid ") {
		t.Fatalf("prompt should name the place: %s", res.Prompt)
	}
	if !strings.HasSuffix(res.Prompt, v.Safety+" "+v.Quality) {
		t.Fatalf("prompt should end with the safety and quality directives: %s", res.Prompt)
	}
	if strings.Contains(res.Prompt, "{") {
		t.Fatalf("prompt has an unreplaced placeholder: %s", res.Prompt)
	}
}

func TestSelectStyle(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name                            string
		sentiment, cond, tod, pref, want string
	}{
		{"preference realistic", "sad", "Rain", "night", "realistic", FamilyRealistic},
		{"preference artistic", "neutral", "Rain", "day", "artistic", FamilyImpressionist},
		{"preference abstract", "calm", "Clear", "noon", "abstract", FamilyAbstract},
		{"rain", "happy", "Rain", "night", "balanced", FamilyWatercolor},
		{"drizzle", "neutral", "Drizzle", "morning", "", FamilyWatercolor},
		{"night", "happy", "Clear", "night", "", FamilyCyberpunk},
		{"excited", "excited", "Clouds", "noon", "", FamilyImpressionist},
		{"sad", "sad", "Clear", "morning", "", FamilyExpressionist},
		{"peaceful", "peaceful", "Snow", "evening", "", FamilyMinimalist},
	}
	s := seeded(7)
	for _, tc := range cases {
		fam, style := s.selectStyle(tc.sentiment, tc.cond, tc.tod, tc.pref)
		if fam != tc.want {
			t.Fatalf("%s: family want=%s got=%s", tc.name, tc.want, fam)
		}
		if !slices.Contains(s.vocab.Styles[fam], style) {
			t.Fatalf("%s: style %q not in family %s", tc.name, style, fam)
		}
	}

	general := []string{FamilyRealistic, FamilyImpressionist, FamilyWatercolor, FamilyMinimalist}
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		fam, _ := s.selectStyle("neutral", "Clear", "morning", "balanced")
		if !slices.Contains(general, fam) {
			t.Fatalf("fallback family: want one of %v got=%s", general, fam)
		}
		seen[fam] = true
	}
	if len(seen) < 2 {
		t.Fatalf("fallback should vary across families, saw %v", seen)
	}
}

func TestExtractSubject(t *testing.T) {
	t.Parallel()
	s := seeded(3)

	if got := s.extractSubject("   ", []string{"dog"}); got != "a person" {
		t.Fatalf("empty text: want=a person got=%q", got)
	}
	if got := s.extractSubject("nice weather with my dog", []string{"nice weather", "dog"}); got != "dog" {
		t.Fatalf("keyword: want=dog got=%q", got)
	}

	got := s.extractSubject("there was an old tree near the road", nil)
	if !strings.HasSuffix(got, " tree") {
		t.Fatalf("common subject: want suffix tree got=%q", got)
	}
	parts := strings.Fields(got)
	if len(parts) != 3 || !slices.Contains(s.vocab.SubjectModifiers, parts[1]) {
		t.Fatalf("common subject: want article, modifier, noun got=%q", got)
	}
	if parts[1] == "ancient" && parts[0] != "an" {
		t.Fatalf("article: want=an got=%q", got)
	}

	if got := s.extractSubject("oh wow", nil); got != "a person" {
		t.Fatalf("short text: want=a person got=%q", got)
	}
	if got := s.extractSubject("something happened yesterday that I keep remembering", nil); got != "a scene" {
		t.Fatalf("long text: want=a scene got=%q", got)
	}
}

func TestExtractAction(t *testing.T) {
	t.Parallel()
	s := seeded(5)

	cases := []struct {
		name     string
		text     string
		keywords []string
		want     string
	}{
		{"empty", "", nil, "contemplating"},
		{"verb in text", "I was walking home slowly", nil, "walking"},
		{"verb in keywords", "nothing in this sentence moves", []string{"music", "dancing"}, "dancing"},
		{"single keyword ignored", "ok then", []string{"dancing"}, "contemplating"},
		{"short", "hmm okay", nil, "contemplating"},
		{"love cue", "I really love this quiet evening", nil, "enjoying"},
		{"wonder cue", "I wonder what tomorrow brings us", nil, "thinking"},
	}
	for _, tc := range cases {
		if got := s.extractAction(tc.text, tc.keywords); got != tc.want {
			t.Fatalf("%s: want=%q got=%q", tc.name, tc.want, got)
		}
	}

	got := s.extractAction("a long sentence about numbers and stuff on the table", nil)
	if !slices.Contains(s.vocab.DefaultActions, got) {
		t.Fatalf("default: want one of %v got=%q", s.vocab.DefaultActions, got)
	}
}

func TestSelectTechnical(t *testing.T) {
	t.Parallel()
	s := seeded(11)
	for i := 0; i < 50; i++ {
		params := strings.Split(s.selectTechnical(FamilyCyberpunk), ", ")
		if !slices.Contains(params, "high quality") || !slices.Contains(params, "high contrast") {
			t.Fatalf("cyberpunk params: got=%v", params)
		}
		if len(params) < 5 || len(params) > 6 {
			t.Fatalf("param count: want 5..6 got=%d (%v)", len(params), params)
		}
		seen := map[string]bool{}
		for _, p := range params {
			if seen[p] {
				t.Fatalf("duplicate param %q in %v", p, params)
			}
			seen[p] = true
		}
	}

	params := strings.Split(s.selectTechnical(FamilyAbstract), ", ")
	if !slices.Contains(params, "balanced composition") {
		t.Fatalf("abstract should use fallback params: got=%v", params)
	}
}

func TestSettingFallsBackToGenericPlace(t *testing.T) {
	t.Parallel()
	s := seeded(1)
	for _, place := range []string{"", environment.UnknownPlace} {
		got := s.buildSetting(place, "Tornado", "teatime")
		if !strings.HasPrefix(got, "in a place, amid ") {
			t.Fatalf("setting(%q): got=%q", place, got)
		}
	}
}

func TestSynthesizeWithoutAnalysisOrContext(t *testing.T) {
	t.Parallel()
	res := seeded(9).Synthesize(Input{Text: ""})
	if res.Subject != "a person" || res.Action != "contemplating" {
		t.Fatalf("defaults: got subject=%q action=%q", res.Subject, res.Action)
	}
	if !strings.HasPrefix(res.Prompt, "A refined ") {
		t.Fatalf("neutral sentiment should use the default template: %s", res.Prompt)
	}
}

func TestLoadVocabularyRejectsMissingFamily(t *testing.T) {
	t.Parallel()
	raw := strings.Replace(string(defaultVocabYAML), "  cyberpunk:\n    - neon", "  cyberpunkx:\n    - neon", 1)
	if raw == string(defaultVocabYAML) {
		t.Fatalf("fixture replacement did not apply")
	}
	if _, err := LoadVocabulary([]byte(raw)); err == nil {
		t.Fatalf("LoadVocabulary: want error for missing cyberpunk family")
	}
}
