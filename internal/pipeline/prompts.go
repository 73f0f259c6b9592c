package pipeline

import (
	"fmt"
	"strings"

	"shaggydog/internal/breed"
)

// ClassifyInstruction builds the user message for breed selection. The model
// must answer with a JSON object naming one catalog key; the response parser
// tolerates looser answers.
func ClassifyInstruction() string {
	keys := breed.Keys()
	display := make([]string, 0, len(keys))
	exact := make([]string, 0, len(keys))
	for _, k := range keys {
		display = append(display, k.DisplayName())
		exact = append(exact, string(k))
	}
	return fmt.Sprintf(
		"This is a fun entertainment app that applies artistic dog-themed visual filters to photos, "+
			"similar to popular social media filters. Analyze this headshot photo and select which dog breed's "+
			"visual aesthetic style would best complement this photo for an artistic transformation effect. "+
			"Think of this like choosing a filter style - which breed's visual characteristics (color palette, "+
			"texture style, overall aesthetic) would create the most visually appealing artistic effect?\n\n"+
			"Available breed filter styles: %s\n\n"+
			"Respond with ONLY a JSON object in this exact format: {\"breed\": \"labrador\"}\n"+
			"Use one of these exact breed keys: %s. Use lowercase with underscores (e.g., \"golden_retriever\").",
		strings.Join(display, ", "),
		strings.Join(exact, ", "),
	)
}

// earDescription picks the ear adjective from the breed's feature list.
func earDescription(b breed.Breed) string {
	switch {
	case b.HasFeature("pointed_ears"):
		return "pointed "
	case b.HasFeature("floppy_ears"):
		return "floppy "
	}
	return ""
}

// furDescription extends the breed display name with its coat texture, used
// by the finalize prompts.
func furDescription(b breed.Breed) string {
	name := b.DisplayName()
	switch {
	case b.HasFeature("long_hair"):
		return name + " with long, shaggy fur"
	case b.HasFeature("curly_hair"):
		return name + " with curly, shaggy fur"
	case b.HasFeature("thick_coat"):
		return name + " with thick, shaggy fur"
	}
	return name
}

// EarPrompt instructs the first edit stage: add breed-appropriate ears in the
// ring around the face while leaving the face and background untouched.
func EarPrompt(b breed.Breed) string {
	return fmt.Sprintf(
		"Add two large, authentic %s%s dog ears with dog ear texture and fur, one on each side of the top "+
			"of the head. The ears should be clearly visible and prominent, positioned symmetrically on opposite "+
			"sides at the top of the head, outside the face area. The ears must have dog ear texture - "+
			"fur-covered, canine appearance, not human ear texture. Make the ears realistic and breed-appropriate "+
			"with proper dog ear material and texture. CRITICAL: DO NOT change or edit the face itself - the face "+
			"must remain COMPLETELY UNCHANGED. Keep all facial features exactly as they are - do not modify the "+
			"eyes, nose, mouth, skin, or any part of the face. The face should look identical to the original. "+
			"Do not change the background - keep the background exactly as it is. Do not add any other dogs, dog "+
			"faces, or dog heads into the image. Only add the two dog ears at the top sides of the head. "+
			"Transform the person by adding dog ears, do not add a separate dog next to the person.",
		earDescription(b), b.DisplayName(),
	)
}

// SnoutPrompt instructs the second edit stage: replace the nose region inside
// the face while keeping the stage-one ears and the background.
func SnoutPrompt(b breed.Breed) string {
	return fmt.Sprintf(
		"Add a %s dog snout/nose to the face area. Only modify the nose/snout region within the face. "+
			"Do not change the background - keep the background exactly as it is. Keep the eyes, facial "+
			"structure, and all features outside the face exactly as they are. Keep ALL previous edits: the dog "+
			"ears from the previous stage must remain visible and unchanged.",
		b.DisplayName(),
	)
}

// EnhancePrompt instructs the head-only finalize stage: improve fur texture
// and detail on the head without adding body fur.
func EnhancePrompt(b breed.Breed) string {
	name := b.DisplayName()
	return fmt.Sprintf(
		"Enhance the existing anthropomorphic human-dog hybrid transformation. Improve the fur texture, "+
			"details, and quality of the %s dog features (ears and snout) on the head while keeping the exact "+
			"same structure, composition, and background. Enhance the realism and quality of the dog fur and "+
			"textures on the head without changing the overall appearance or layout. Keep the background exactly "+
			"the same.",
		name,
	)
}

// BodyFurPrompt instructs the full finalize stage: improve the head features
// and extend fur over the torso and shoulders.
func BodyFurPrompt(b breed.Breed) string {
	name := b.DisplayName()
	return fmt.Sprintf(
		"Enhance the existing anthropomorphic human-dog hybrid transformation. Improve the fur texture, "+
			"details, and quality of the %s dog features (ears and snout) on the head. Additionally, add fluffy, "+
			"fuzzy, furry %s dog fur to the body, torso, and shoulders - make the body area covered in soft, "+
			"shaggy dog fur while preserving the clothing underneath. Enhance the realism and quality of the dog "+
			"fur and textures on both the head and body. Keep the exact same structure, composition, and "+
			"background. Keep the background exactly the same.",
		name, furDescription(b),
	)
}
