// Package models contains data structures for the application's domain models.
package models

import (
	"strings"
	"time"
)

// timestampPrecision is the coarsest precision among the supported stores
// (MongoDB keeps milliseconds).
const timestampPrecision = time.Millisecond

// Post represents a blog post.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewPost builds a post ready to be persisted. Title and content are trimmed
// and must be non-empty. Both timestamps are set from now; the ID is left for
// the persistence layer to assign.
func NewPost(title, content string, now time.Time) (*Post, error) {
	title, content, err := normalizeFields(title, content)
	if err != nil {
		return nil, err
	}

	ts := normalizeTime(now)
	return &Post{
		Title:     title,
		Content:   content,
		CreatedAt: ts,
		UpdatedAt: ts,
	}, nil
}

// Revise replaces title and content wholesale and refreshes UpdatedAt.
// UpdatedAt always ends up strictly after CreatedAt. On a validation error
// the post is left untouched.
func (p *Post) Revise(title, content string, now time.Time) error {
	title, content, err := normalizeFields(title, content)
	if err != nil {
		return err
	}

	ts := normalizeTime(now)
	if !ts.After(p.CreatedAt) {
		ts = p.CreatedAt.Add(timestampPrecision)
	}

	p.Title = title
	p.Content = content
	p.UpdatedAt = ts
	return nil
}

// WasEdited reports whether the post has been updated since creation.
func (p *Post) WasEdited() bool {
	return !p.UpdatedAt.Equal(p.CreatedAt)
}

// ValidatePostFields checks that title and content are non-empty after trimming.
func ValidatePostFields(title, content string) error {
	_, _, err := normalizeFields(title, content)
	return err
}

func normalizeFields(title, content string) (string, string, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" || content == "" {
		return "", "", NewValidationError(MsgTitleContentRequired)
	}
	return title, content, nil
}

func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(timestampPrecision)
}
