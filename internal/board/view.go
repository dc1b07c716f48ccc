package board

import (
	"fmt"
	"strings"
	"time"

	"inkwell/internal/models"
)

// TimestampLayout renders dates in the long en-US form.
const TimestampLayout = "January 2, 2006 at 03:04 PM"

// FormatTimestamp renders t in loc (time.Local when nil).
func FormatTimestamp(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(TimestampLayout)
}

// PostMeta returns the date lines shown under a post. The updated line only
// appears when the post was edited.
func PostMeta(p models.Post, loc *time.Location) []string {
	lines := []string{"Created: " + FormatTimestamp(p.CreatedAt, loc)}
	if p.WasEdited() {
		lines = append(lines, "Updated: "+FormatTimestamp(p.UpdatedAt, loc))
	}
	return lines
}

// RenderPost renders a post as plain text.
func RenderPost(p models.Post, loc *time.Location) string {
	var sb strings.Builder
	sb.WriteString(p.Title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", len([]rune(p.Title))))
	sb.WriteString("\n")
	sb.WriteString(p.Content)
	sb.WriteString("\n\n")
	for _, line := range PostMeta(p, loc) {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Summary is a one-line label for a post in a picker.
func Summary(p models.Post, loc *time.Location) string {
	return fmt.Sprintf("%s (%s)", p.Title, FormatTimestamp(p.CreatedAt, loc))
}

// RenderBanner renders b, or "" when there is no banner.
func RenderBanner(b Banner) string {
	switch b.Kind {
	case BannerError:
		return "[error] " + b.Text
	case BannerSuccess:
		return "[ok] " + b.Text
	default:
		return ""
	}
}
