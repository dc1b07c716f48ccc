// Package board holds the state of the single-view blog client: the post
// list, the draft being written, the post being edited and a transient banner.
package board

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"inkwell/internal/models"

	"github.com/samber/lo"
)

// BannerTTL is how long a banner stays visible.
const BannerTTL = 3 * time.Second

// Banner texts.
const (
	MsgCreated         = "Post created successfully!"
	MsgUpdated         = "Post updated successfully!"
	MsgDeleted         = "Post deleted successfully!"
	MsgFetchFailed     = "Failed to fetch posts. Make sure the backend server is running."
	MsgCreateFailed    = "Failed to create post. Check your connection."
	MsgUpdateFailed    = "Failed to update post."
	MsgDeleteFailed    = "Failed to delete post."
	MsgIncompleteDraft = "Please fill in both title and content"
)

var (
	// ErrIncompleteDraft is returned by Submit when a draft field is blank.
	ErrIncompleteDraft = errors.New(MsgIncompleteDraft)
	// ErrUnknownPost is returned when an id is not in the current list.
	ErrUnknownPost = errors.New("post is not in the list")
	// ErrNotConfirmed is returned by Delete when the confirmation was declined.
	ErrNotConfirmed = errors.New("delete not confirmed")
)

// PostAPI is the subset of the API client the board drives.
type PostAPI interface {
	ListPosts(ctx context.Context) ([]models.Post, error)
	CreatePost(ctx context.Context, title, content string) (*models.Post, error)
	UpdatePost(ctx context.Context, id, title, content string) (*models.Post, error)
	DeletePost(ctx context.Context, id string) error
}

type BannerKind int

const (
	BannerNone BannerKind = iota
	BannerError
	BannerSuccess
)

func (k BannerKind) String() string {
	switch k {
	case BannerError:
		return "error"
	case BannerSuccess:
		return "success"
	default:
		return "none"
	}
}

// Banner is a transient message shown above the form.
type Banner struct {
	Kind     BannerKind
	Text     string
	RaisedAt time.Time
}

// Draft is the content of the form.
type Draft struct {
	Title   string
	Content string
}

// Complete reports whether both fields are non-blank.
func (d Draft) Complete() bool {
	return strings.TrimSpace(d.Title) != "" && strings.TrimSpace(d.Content) != ""
}

// Board is the client state machine. It is safe for concurrent use; API calls
// are made without holding the lock so readers can observe Loading.
type Board struct {
	api PostAPI
	now func() time.Time

	mu      sync.Mutex
	posts   []models.Post
	draft   Draft
	editing *models.Post
	banner  Banner
	loading bool
}

// Option configures a Board.
type Option func(*Board)

// WithClock replaces time.Now, which drives banner expiry.
func WithClock(now func() time.Time) Option {
	return func(b *Board) { b.now = now }
}

func New(api PostAPI, opts ...Option) *Board {
	b := &Board{api: api, now: time.Now, posts: []models.Post{}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Mount performs the initial fetch.
func (b *Board) Mount(ctx context.Context) error {
	return b.Refresh(ctx)
}

// Refresh re-fetches the post list. On failure the previous list is kept and
// an error banner is raised; on success a pending error banner is cleared.
func (b *Board) Refresh(ctx context.Context) error {
	b.mu.Lock()
	b.loading = true
	b.mu.Unlock()

	posts, err := b.api.ListPosts(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.loading = false
	if err != nil {
		b.raise(BannerError, MsgFetchFailed)
		return err
	}
	if posts == nil {
		posts = []models.Post{}
	}
	b.posts = posts
	if b.currentBanner().Kind == BannerError {
		b.banner = Banner{}
	}
	return nil
}

// Posts returns a copy of the current list, newest first.
func (b *Board) Posts() []models.Post {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Post(nil), b.posts...)
}

func (b *Board) Loading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loading
}

func (b *Board) Draft() Draft {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.draft
}

func (b *Board) SetTitle(title string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draft.Title = title
}

func (b *Board) SetContent(content string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draft.Content = content
}

// Editing returns the post being edited, if any.
func (b *Board) Editing() (models.Post, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.editing == nil {
		return models.Post{}, false
	}
	return *b.editing, true
}

// CanSubmit reports whether the submit action is enabled.
func (b *Board) CanSubmit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.draft.Complete()
}

// Banner returns the visible banner, or the zero Banner once it has expired.
func (b *Board) Banner() Banner {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentBanner()
}

// Submit creates a post from the draft, or updates the post being edited.
// On success the draft (and edit target) are cleared and the list is
// re-fetched; on failure both are kept.
func (b *Board) Submit(ctx context.Context) error {
	b.mu.Lock()
	draft := b.draft
	var target *models.Post
	if b.editing != nil {
		p := *b.editing
		target = &p
	}
	if !draft.Complete() {
		b.raise(BannerError, MsgIncompleteDraft)
		b.mu.Unlock()
		return ErrIncompleteDraft
	}
	b.mu.Unlock()

	var err error
	if target == nil {
		_, err = b.api.CreatePost(ctx, draft.Title, draft.Content)
	} else {
		_, err = b.api.UpdatePost(ctx, target.ID, draft.Title, draft.Content)
	}

	b.mu.Lock()
	if err != nil {
		b.raise(BannerError, lo.Ternary(target == nil, MsgCreateFailed, MsgUpdateFailed))
		b.mu.Unlock()
		return err
	}
	b.draft = Draft{}
	b.editing = nil
	b.raise(BannerSuccess, lo.Ternary(target == nil, MsgCreated, MsgUpdated))
	b.mu.Unlock()

	return b.refreshAfterWrite(ctx)
}

// StartEdit copies the listed post with id into the draft and makes it the
// edit target.
func (b *Board) StartEdit(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	post, ok := lo.Find(b.posts, func(p models.Post) bool { return p.ID == id })
	if !ok {
		return ErrUnknownPost
	}
	b.editing = &post
	b.draft = Draft{Title: post.Title, Content: post.Content}
	b.banner = Banner{}
	return nil
}

// CancelEdit leaves edit mode, clearing the draft and banner.
func (b *Board) CancelEdit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.editing = nil
	b.draft = Draft{}
	b.banner = Banner{}
}

// Delete asks confirm about the listed post with id and deletes it when
// confirmed. Deleting the post being edited also leaves edit mode.
func (b *Board) Delete(ctx context.Context, id string, confirm func(models.Post) bool) error {
	b.mu.Lock()
	post, ok := lo.Find(b.posts, func(p models.Post) bool { return p.ID == id })
	b.mu.Unlock()
	if !ok {
		return ErrUnknownPost
	}
	if confirm == nil || !confirm(post) {
		return ErrNotConfirmed
	}

	if err := b.api.DeletePost(ctx, id); err != nil {
		b.mu.Lock()
		b.raise(BannerError, MsgDeleteFailed)
		b.mu.Unlock()
		return err
	}

	b.mu.Lock()
	if b.editing != nil && b.editing.ID == id {
		b.editing = nil
		b.draft = Draft{}
	}
	b.raise(BannerSuccess, MsgDeleted)
	b.mu.Unlock()

	return b.refreshAfterWrite(ctx)
}

// refreshAfterWrite re-fetches after a successful write. A fetch failure
// replaces the success banner but is not the write's error.
func (b *Board) refreshAfterWrite(ctx context.Context) error {
	_ = b.Refresh(ctx)
	return nil
}

func (b *Board) raise(kind BannerKind, text string) {
	b.banner = Banner{Kind: kind, Text: text, RaisedAt: b.now()}
}

func (b *Board) currentBanner() Banner {
	if b.banner.Kind == BannerNone {
		return Banner{}
	}
	if !b.now().Before(b.banner.RaisedAt.Add(BannerTTL)) {
		b.banner = Banner{}
	}
	return b.banner
}
