package workflows

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tendant/simple-alt-pipeline/pkg/pipeline"
)

// DefaultInstructions is the system prompt used when no instructions file is configured.
const DefaultInstructions = `# Role
You write WCAG 2.1 compliant ALT text for images on a commercial website.

# Output
Return exactly one line of plain text. Return an empty string when the image needs no ALT text.

# Rules
1. Decorative images (backgrounds, gradients, spacers) without readable text get an empty string.
2. Blurry, corrupted or unintelligible images get an empty string.
3. If the image contains readable text, return all of it in reading order, in its original wording, joined into one line. Do not describe the image in that case.
4. Otherwise describe the main subject concisely, in at most 150 characters.
5. Never invent text, product names or details that are not visible.
6. Do not start with "Image of" or "Picture of".`

// LoadInstructions reads the system prompt from path. An empty path returns DefaultInstructions.
func LoadInstructions(path string) (string, error) {
	if path == "" {
		return DefaultInstructions, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read instructions: %w", err)
	}
	instructions := strings.TrimSpace(string(data))
	if instructions == "" {
		return "", fmt.Errorf("%w: instructions file %s is empty", ErrInvalidRequest, path)
	}
	return instructions, nil
}

// UserMessage builds the text part of the request for one image
func UserMessage(localeName, usageContext string) string {
	var b strings.Builder
	b.WriteString("Generate an ALT tag for this image.")
	if localeName != "" {
		b.WriteString("\n\nGenerate the ALT tag in the language: ")
		b.WriteString(localeName)
	}
	if usageContext != "" {
		b.WriteString("\n\nContext: ")
		b.WriteString(usageContext)
	}
	return b.String()
}

// UsageContext describes where an image is used, one sentence per usage.
// Entry titles are memoized in titles, keyed by content type, entry and locale.
func UsageContext(ctx context.Context, titler EntryTitler, usages []pipeline.UsageSummary, titles map[string]string) string {
	if len(usages) == 0 {
		return ""
	}

	parts := make([]string, 0, len(usages))
	for _, u := range usages {
		key := u.ContentTypeUID + ":" + u.EntryUID + ":" + u.Locale
		title, ok := titles[key]
		if !ok {
			// FetchEntryTitle falls back to the entry uid on error
			title, _ = titler.FetchEntryTitle(ctx, u.ContentTypeUID, u.EntryUID, u.Locale)
			if title == "" {
				title = u.EntryUID
			}
			titles[key] = title
		}

		ctTitle := u.ContentTypeTitle
		if ctTitle == "" {
			ctTitle = u.ContentTypeUID
		}
		parts = append(parts, fmt.Sprintf("Used in content type %s named %s", ctTitle, title))
	}
	return strings.Join(parts, ". ")
}
