package breed

import (
	"regexp"
	"strings"
)

// variantMapping folds common phrasing variants onto catalog keys. The
// classify endpoint answers in free text often enough that exact-key parsing
// alone is not reliable.
var variantMapping = map[string]Breed{
	"golden retriever":   "golden_retriever",
	"goldenretriever":    "golden_retriever",
	"golden_retriever":   "golden_retriever",
	"labrador":           "labrador",
	"labrador retriever": "labrador",
	"labradorretriever":  "labrador",
	"german shepherd":    "german_shepherd",
	"germanshepherd":     "german_shepherd",
	"german_shepherd":    "german_shepherd",
	"alsatian":           "german_shepherd",
	"poodle":             "poodle",
	"bulldog":            "bulldog",
	"english bulldog":    "bulldog",
	"englishbulldog":     "bulldog",
	"beagle":             "beagle",
	"husky":              "husky",
	"siberian husky":     "husky",
	"siberianhusky":      "husky",
	"dachshund":          "dachshund",
	"wiener dog":         "dachshund",
	"wienerdog":          "dachshund",
	"sausage dog":        "dachshund",
	"sausagedog":         "dachshund",
}

var jsonBreedPattern = regexp.MustCompile(`\{[^}]*"breed"\s*:\s*"([^"]+)"[^}]*\}`)

// Normalize maps a raw classify response onto a catalog breed. It tries, in
// order: the JSON answer format the instruction asks for, exact catalog keys
// (underscored or spaced), and the variant mapping. The second result is
// false when nothing matched.
func Normalize(raw string) (Breed, bool) {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return "", false
	}

	if m := jsonBreedPattern.FindStringSubmatch(text); m != nil {
		candidate := strings.TrimSpace(m[1])
		if Known(Breed(candidate)) {
			return Breed(candidate), true
		}
		if mapped, ok := variantMapping[candidate]; ok {
			return mapped, true
		}
	}

	for _, key := range Keys() {
		if containsWord(text, string(key)) || containsWord(text, strings.ReplaceAll(string(key), "_", " ")) {
			return key, true
		}
	}

	for variant, key := range variantMapping {
		if containsWord(text, variant) {
			return key, true
		}
	}

	return "", false
}

// Resolve is Normalize with the documented default substituted for
// unparseable responses.
func Resolve(raw string) Breed {
	if b, ok := Normalize(raw); ok {
		return b
	}
	return Default
}

// Refused reports whether the response looks like a content-moderation
// refusal rather than an answer.
func Refused(raw string) bool {
	text := strings.ToLower(raw)
	return strings.Contains(text, "sorry") || strings.Contains(text, "can't help")
}

func containsWord(text, word string) bool {
	pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`)
	return pattern.MatchString(text)
}
