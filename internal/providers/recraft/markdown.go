package recraft

import (
	"strings"

	"recraftgen/internal/providers/fal"
)

const (
	noImagesMessage = "No images were generated."
	defaultAltText  = "Generated Image"
	maxAltRunes     = 100
)

// FormatMarkdown renders every image of result as a markdown image line,
// using the start of prompt as alt text.
func FormatMarkdown(result *fal.Result, prompt string) string {
	if result == nil || len(result.Images) == 0 {
		return noImagesMessage
	}
	alt := altText(prompt)
	var b strings.Builder
	for _, img := range result.Images {
		b.WriteString("![")
		b.WriteString(alt)
		b.WriteString("](")
		b.WriteString(img.URL)
		b.WriteString(")\n\n")
	}
	return b.String()
}

func altText(prompt string) string {
	if prompt == "" {
		return defaultAltText
	}
	runes := []rune(prompt)
	if len(runes) > maxAltRunes {
		return string(runes[:maxAltRunes])
	}
	return prompt
}
