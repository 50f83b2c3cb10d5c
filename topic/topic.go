package topic

import (
	"regexp"
	"strings"
)

const (
	UnknownSpecies   = "unknown species"
	UnknownCondition = "unknown condition"
)

// Topic is what an educational question is about.
type Topic struct {
	Species   string `json:"species"`
	Condition string `json:"condition"`
	// Category is the condition group that matched ("orthopedic", ...); empty when the
	// condition came from the keyword fallback.
	Category string `json:"category,omitempty"`
}

type rule struct {
	label string
	re    *regexp.Regexp
}

// words compiles a whole-word alternation that also takes a plural "s".
func words(alts string) *regexp.Regexp {
	return regexp.MustCompile(`\b(?:` + alts + `)s?\b`)
}

// First match wins, so order matters: "cat" is tested before "dog", and so on.
var speciesRules = []rule{
	{"cat", words(`cat|feline|kitten`)},
	{"dog", words(`dog|canine|puppy|puppie`)},
	{"horse", words(`horse|equine|foal|pony|ponie`)},
	{"bird", words(`bird|avian|parrot|parakeet|chicken`)},
	{"fish", words(`fish|aquatic|goldfish|tropical`)},
	{"rabbit", words(`rabbit|bunny|bunnie|hare`)},
	{"pig", words(`pig|hog|swine|piglet`)},
	{"sheep", words(`sheep|goat|lamb|ewe`)},
	{"cow", words(`cow|beef|cattle|calf|calve`)},
	{"turkey", words(`turkey|poultry|chick`)},
	{"lizard", words(`lizard|reptile|gecko|iguana`)},
	{"snake", words(`snake|serpent|python|boa`)},
	{"small mammal", words(`hamster|gerbil|mouse|mice|rat`)},
}

var conditionRules = []rule{
	{"cardiac", words(`heart disease|cardiac|cardiovascular|arrhythmia|murmur`)},
	{"respiratory", words(`respiratory|pneumonia|bronchitis|asthma|breathing difficulty`)},
	{"digestive", words(`gastritis|enteritis|colitis|diarrhea|vomiting|gastroenteritis`)},
	{"orthopedic", words(`hip dysplasia|arthritis|joint|fracture|lameness|limping`)},
	{"neurological", words(`seizure|epilepsy|paralysis|neurological|nerve|nervous`)},
	{"endocrine", words(`diabetes|thyroid|cushing|cushing's|addison|addison's`)},
	{"skin", words(`dermatitis|allergy|allergie|skin|itching|rash`)},
	{"cancer", words(`cancer|tumor|mass|masse|neoplasia|lymphoma`)},
	{"urinary", words(`kidney|bladder|urinary|uti|renal`)},
	{"dental", words(`dental|tooth|teeth|gingivitis|periodontal`)},
	{"parasitic", words(`worm|flea|tick|parasite|mite`)},
	{"infectious", words(`infection|virus|viruse|bacterial|fungal`)},
	{"emergency", words(`emergency|trauma|poisoning|bleeding|wound`)},
	{"behavioral", words(`anxiety|aggression|behavior|behavioral|stress`)},
	{"reproductive", words(`pregnancy|breeding|fertility|reproduction`)},
}

var stopwords = map[string]struct{}{
	"what": {}, "how": {}, "why": {}, "when": {}, "where": {},
	"is": {}, "are": {}, "the": {}, "and": {}, "for": {}, "with": {},
}

// Extract detects species and condition from free text. Pure and deterministic.
func Extract(text string) Topic {
	clean := strings.ToLower(strings.TrimSpace(text))
	t := Topic{Species: UnknownSpecies, Condition: UnknownCondition}

	for _, r := range speciesRules {
		if r.re.MatchString(clean) {
			t.Species = r.label
			break
		}
	}
	for _, r := range conditionRules {
		if m := r.re.FindString(clean); m != "" {
			t.Condition = m
			t.Category = r.label
			return t
		}
	}
	if w := longestKeyword(clean); w != "" {
		t.Condition = w
	}
	return t
}

// longestKeyword returns the longest word over 3 bytes that is not a stopword.
// Ties keep the first occurrence.
func longestKeyword(clean string) string {
	best := ""
	for _, w := range strings.Fields(clean) {
		if len(w) <= 3 {
			continue
		}
		if _, skip := stopwords[w]; skip {
			continue
		}
		if len(w) > len(best) {
			best = w
		}
	}
	return best
}

// corrections is applied in order by Sanitize.
var corrections = []struct {
	re   *regexp.Regexp
	with string
}{
	{regexp.MustCompile(`(?i)\bheaert\b`), "heart"},
	{regexp.MustCompile(`(?i)\bdiarrhoea\b`), "diarrhea"},
	{regexp.MustCompile(`(?i)\bdiarhea\b`), "diarrhea"},
	{regexp.MustCompile(`(?i)\bvommiting\b`), "vomiting"},
	{regexp.MustCompile(`(?i)\bseizur\b`), "seizure"},
	{regexp.MustCompile(`(?i)\barthritus\b`), "arthritis"},
}

// Sanitize fixes known misspellings and trims surrounding whitespace.
func Sanitize(text string) string {
	out := strings.TrimSpace(text)
	for _, c := range corrections {
		out = c.re.ReplaceAllString(out, c.with)
	}
	return out
}
