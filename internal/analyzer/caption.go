package analyzer

import "strings"

// captionMarkers are the labels the model has been seen to put in front of
// the social caption, in match order.
var captionMarkers = []string{
	"3. **Instagram Reel Caption**:",
	"**Instagram Reel Caption**:",
	"Instagram Reel Caption:",
	"3. Instagram Reel Caption:",
}

var captionCleaner = strings.NewReplacer("*", "", `"`, "")

// ExtractCaption pulls the social caption out of a free-text reply. The
// first marker found wins; the caption is the text after it up to the next
// occurrence of the same marker, stripped of emphasis and quotes and cut at
// the first blank line. It returns nil when no marker is present.
func ExtractCaption(content string) *string {
	for _, marker := range captionMarkers {
		if !strings.Contains(content, marker) {
			continue
		}
		parts := strings.Split(content, marker)
		if len(parts) < 2 {
			continue
		}

		caption := strings.TrimSpace(parts[1])
		caption = strings.TrimSpace(captionCleaner.Replace(caption))
		caption, _, _ = strings.Cut(caption, "\n\n")
		caption = strings.TrimSpace(caption)
		return &caption
	}
	return nil
}
