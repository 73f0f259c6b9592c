package breed

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Breed is a canonical catalog key: lowercase with underscores.
type Breed string

// Default is substituted whenever detection fails or the service response
// cannot be mapped onto the catalog. Detection failure is non-fatal.
const Default Breed = "golden_retriever"

// Profile describes one supported breed for prompt construction.
type Profile struct {
	Features    []string
	Description string
}

// Catalog holds the supported breed filter styles.
var Catalog = map[Breed]Profile{
	"golden_retriever": {
		Features:    []string{"friendly", "blonde", "long_hair", "medium_size", "kind_eyes"},
		Description: "friendly and gentle Golden Retriever",
	},
	"labrador": {
		Features:    []string{"friendly", "short_hair", "medium_size", "athletic"},
		Description: "friendly and energetic Labrador",
	},
	"german_shepherd": {
		Features:    []string{"serious", "pointed_ears", "medium_hair", "intelligent"},
		Description: "intelligent and loyal German Shepherd",
	},
	"poodle": {
		Features:    []string{"curly_hair", "elegant", "small_medium", "refined"},
		Description: "elegant and refined Poodle",
	},
	"bulldog": {
		Features:    []string{"strong", "short_hair", "sturdy", "wrinkled"},
		Description: "strong and sturdy Bulldog",
	},
	"beagle": {
		Features:    []string{"friendly", "floppy_ears", "medium_size", "curious"},
		Description: "friendly and curious Beagle",
	},
	"husky": {
		Features:    []string{"striking_eyes", "thick_coat", "medium_large", "wolf_like"},
		Description: "striking and wolf-like Siberian Husky",
	},
	"dachshund": {
		Features:    []string{"long_body", "short_legs", "small_medium", "determined"},
		Description: "determined and distinctive Dachshund",
	},
}

var titleCaser = cases.Title(language.English)

// Known reports whether b is a catalog breed.
func Known(b Breed) bool {
	_, ok := Catalog[b]
	return ok
}

// Keys returns the catalog keys in stable order.
func Keys() []Breed {
	keys := make([]Breed, 0, len(Catalog))
	for b := range Catalog {
		keys = append(keys, b)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// DisplayName renders a catalog key for prompts and the dashboard,
// e.g. "golden_retriever" -> "Golden Retriever".
func (b Breed) DisplayName() string {
	return titleCaser.String(strings.ReplaceAll(string(b), "_", " "))
}

// Features returns the profile features, empty for unknown breeds.
func (b Breed) Features() []string {
	return Catalog[b].Features
}

// HasFeature reports whether the breed profile carries the named feature.
func (b Breed) HasFeature(name string) bool {
	for _, f := range Catalog[b].Features {
		if f == name {
			return true
		}
	}
	return false
}
