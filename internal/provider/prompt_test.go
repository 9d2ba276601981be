package provider

import (
	"testing"

	"profilephoto-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt(t *testing.T) {
	style := &models.Style{
		Name:   "professional",
		Prompt: "corporate headshot of {gender}, {age_range}, {ethnicity}, studio lighting",
	}
	profile := &models.Profile{Gender: "man", AgeRange: "30-40", Ethnicity: "hispanic"}

	prompt, negative := BuildPrompt(style, profile)
	assert.Equal(t, "photo of sks person, corporate headshot of man, 30-40, hispanic, studio lighting", prompt)
	assert.NotEmpty(t, negative)
}

func TestBuildPrompt_Defaults(t *testing.T) {
	style := &models.Style{Prompt: "headshot of {gender}, {age_range}, {ethnicity}"}

	// Unset hints collapse to neutral phrases; the empty ethnicity leaves no
	// double spaces behind
	prompt, _ := BuildPrompt(style, &models.Profile{})
	assert.Contains(t, prompt, "headshot of person, adult,")
	assert.NotContains(t, prompt, "  ")
}

func TestBuildPrompt_TriggerNotDuplicated(t *testing.T) {
	style := &models.Style{Prompt: "photo of sks person in a suit"}

	prompt, _ := BuildPrompt(style, &models.Profile{})
	assert.Equal(t, "photo of sks person in a suit", prompt)
}

func TestBuildPrompt_CustomNegative(t *testing.T) {
	style := &models.Style{Prompt: "x", NegativePrompt: "cartoon"}

	_, negative := BuildPrompt(style, &models.Profile{})
	assert.Equal(t, "cartoon", negative)
}
