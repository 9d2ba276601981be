package provider

import (
	"strings"

	"profilephoto-backend/internal/models"
)

// BuildPrompt expands a style template with the profile's demographic hints.
// Templates may reference {gender}, {age_range} and {ethnicity}; unset hints
// collapse to a neutral phrase. The trigger token the trained model expects
// is prepended when the template does not already carry it.
func BuildPrompt(style *models.Style, profile *models.Profile) (string, string) {
	prompt := expandHints(style.Prompt, profile.Gender, profile.AgeRange, profile.Ethnicity)

	const trigger = "photo of sks person"
	if !strings.Contains(strings.ToLower(prompt), "sks") {
		prompt = trigger + ", " + prompt
	}

	negative := style.NegativePrompt
	if negative == "" {
		negative = "deformed, blurry, bad anatomy, disfigured, poorly drawn face, low quality"
	}
	return prompt, negative
}

func expandHints(template, gender, ageRange, ethnicity string) string {
	r := strings.NewReplacer(
		"{gender}", orDefault(gender, "person"),
		"{age_range}", orDefault(ageRange, "adult"),
		"{ethnicity}", strings.TrimSpace(ethnicity),
	)
	return strings.Join(strings.Fields(r.Replace(template)), " ")
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
