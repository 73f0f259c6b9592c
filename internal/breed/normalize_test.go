package breed

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Breed
		ok   bool
	}{
		{"json answer", `{"breed": "labrador"}`, "labrador", true},
		{"json answer with prose", `Sure! Here you go: {"breed": "husky"} hope that helps`, "husky", true},
		{"json with spaced variant", `{"breed": "golden retriever"}`, "golden_retriever", true},
		{"bare key", "german_shepherd", "german_shepherd", true},
		{"key with spaces", "I would pick the german shepherd style", "german_shepherd", true},
		{"variant alternate name", "This looks like an alsatian to me", "german_shepherd", true},
		{"variant wiener dog", "definitely a wiener dog aesthetic", "dachshund", true},
		{"uppercase input", "POODLE", "poodle", true},
		{"no partial word match", "doodlebug", "", false},
		{"empty", "", "", false},
		{"unrecognized", "a charming tabby cat", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.raw)
			if ok != tt.ok {
				t.Fatalf("Normalize(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestResolveFallsBackToDefault(t *testing.T) {
	if got := Resolve("no dog in sight"); got != Default {
		t.Fatalf("Resolve() = %q, want default %q", got, Default)
	}
	if !Known(Resolve("anything at all")) {
		t.Fatal("Resolve must always produce a catalog breed")
	}
	if got := Resolve("beagle, for sure"); got != Breed("beagle") {
		t.Fatalf("Resolve() = %q, want beagle", got)
	}
}

func TestRefused(t *testing.T) {
	if !Refused("I'm sorry, I can't help with that request") {
		t.Fatal("refusal not detected")
	}
	if Refused(`{"breed": "husky"}`) {
		t.Fatal("answer misread as refusal")
	}
}

func TestDisplayName(t *testing.T) {
	if got := Breed("golden_retriever").DisplayName(); got != "Golden Retriever" {
		t.Fatalf("DisplayName() = %q", got)
	}
	if got := Breed("husky").DisplayName(); got != "Husky" {
		t.Fatalf("DisplayName() = %q", got)
	}
}

func TestCatalogProfiles(t *testing.T) {
	if len(Keys()) != 8 {
		t.Fatalf("catalog has %d breeds, want 8", len(Keys()))
	}
	for _, b := range Keys() {
		p := Catalog[b]
		if p.Description == "" || len(p.Features) == 0 {
			t.Fatalf("breed %q has an incomplete profile", b)
		}
	}
	if !Breed("german_shepherd").HasFeature("pointed_ears") {
		t.Fatal("german_shepherd should have pointed_ears")
	}
	if Breed("labrador").HasFeature("pointed_ears") {
		t.Fatal("labrador should not have pointed_ears")
	}
}
