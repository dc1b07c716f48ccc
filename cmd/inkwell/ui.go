package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"inkwell/internal/board"
	"inkwell/internal/models"

	"github.com/samber/lo"
)

// Menu actions.
const (
	actNew     = "New post"
	actEdit    = "Edit a post"
	actView    = "View a post"
	actDelete  = "Delete a post"
	actTitle   = "Change title"
	actContent = "Change content"
	actSave    = "Save changes"
	actPublish = "Publish"
	actCancel  = "Cancel edit"
	actRefresh = "Refresh"
	actQuit    = "Quit"
)

// runUI drives b from the terminal until the user quits.
func runUI(ctx context.Context, w io.Writer, b *board.Board, p prompter, loc *time.Location) error {
	fmt.Fprintln(w, "Loading posts...")
	_ = b.Mount(ctx)

	for {
		render(w, b, loc)

		action, err := p.Choose("What next?", menu(b))
		if err != nil {
			if isQuit(err) {
				return nil
			}
			return err
		}

		switch action {
		case actQuit:
			return nil
		case actRefresh:
			_ = b.Refresh(ctx)
		case actNew:
			err = compose(ctx, b, p)
		case actTitle:
			err = promptField(p, "Title:", b.Draft().Title, b.SetTitle)
		case actContent:
			err = promptField(p, "Content:", b.Draft().Content, b.SetContent)
		case actSave, actPublish:
			_ = b.Submit(ctx)
		case actCancel:
			b.CancelEdit()
		case actEdit:
			var post models.Post
			if post, err = pickPost(p, "Edit which post?", b.Posts(), loc); err == nil {
				if serr := b.StartEdit(post.ID); serr != nil {
					fmt.Fprintln(w, serr)
				}
			}
		case actView:
			var post models.Post
			if post, err = pickPost(p, "View which post?", b.Posts(), loc); err == nil {
				fmt.Fprintln(w)
				fmt.Fprint(w, board.RenderPost(post, loc))
			}
		case actDelete:
			var post models.Post
			if post, err = pickPost(p, "Delete which post?", b.Posts(), loc); err == nil {
				// Outcomes other than a prompt failure land on the banner.
				_ = b.Delete(ctx, post.ID, func(post models.Post) bool {
					ok, cerr := confirm(p, fmt.Sprintf("Are you sure you want to delete %q?", post.Title))
					if cerr != nil {
						err = cerr
					}
					return ok
				})
			}
		}

		switch {
		case err == nil, errors.Is(err, errNoChoice):
		case isQuit(err):
			return nil
		default:
			return err
		}
	}
}

// menu lists the actions available in the board's current state.
func menu(b *board.Board) []string {
	hasPosts := len(b.Posts()) > 0
	if _, editing := b.Editing(); editing {
		return lo.Compact([]string{
			actTitle, actContent,
			lo.Ternary(b.CanSubmit(), actSave, ""),
			actCancel,
			lo.Ternary(hasPosts, actView, ""),
			actRefresh, actQuit,
		})
	}
	draft := b.Draft()
	return lo.Compact([]string{
		actNew,
		lo.Ternary(draft.Title != "" || draft.Content != "", actTitle, ""),
		lo.Ternary(draft.Title != "" || draft.Content != "", actContent, ""),
		lo.Ternary(b.CanSubmit(), actPublish, ""),
		lo.Ternary(hasPosts, actEdit, ""),
		lo.Ternary(hasPosts, actView, ""),
		lo.Ternary(hasPosts, actDelete, ""),
		actRefresh, actQuit,
	})
}

// compose fills the draft and submits it.
func compose(ctx context.Context, b *board.Board, p prompter) error {
	draft := b.Draft()
	if err := promptField(p, "Title:", draft.Title, b.SetTitle); err != nil {
		return err
	}
	if err := promptField(p, "Content:", draft.Content, b.SetContent); err != nil {
		return err
	}
	// The outcome is shown on the banner.
	_ = b.Submit(ctx)
	return nil
}

func promptField(p prompter, question, current string, set func(string)) error {
	value, err := p.Input(question, current)
	if err != nil {
		return err
	}
	set(value)
	return nil
}

var errNoChoice = errors.New("no post chosen")

func pickPost(p prompter, question string, posts []models.Post, loc *time.Location) (models.Post, error) {
	if len(posts) == 0 {
		return models.Post{}, errNoChoice
	}
	labels := lo.Map(posts, func(post models.Post, i int) string {
		return fmt.Sprintf("%d. %s", i+1, board.Summary(post, loc))
	})
	choice, err := p.Choose(question, labels)
	if err != nil {
		return models.Post{}, err
	}
	i := lo.IndexOf(labels, choice)
	if i < 0 {
		return models.Post{}, errNoChoice
	}
	return posts[i], nil
}

func render(w io.Writer, b *board.Board, loc *time.Location) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Inkwell ===")
	if banner := board.RenderBanner(b.Banner()); banner != "" {
		fmt.Fprintln(w, banner)
	}
	if b.Loading() {
		fmt.Fprintln(w, "Loading posts...")
	}

	if target, editing := b.Editing(); editing {
		fmt.Fprintf(w, "Editing %q\n", target.Title)
	}
	if draft := b.Draft(); draft.Title != "" || draft.Content != "" {
		fmt.Fprintf(w, "Draft: %q / %q\n", draft.Title, draft.Content)
		if !b.CanSubmit() {
			fmt.Fprintln(w, board.MsgIncompleteDraft)
		}
	}

	posts := b.Posts()
	if len(posts) == 0 {
		fmt.Fprintln(w, "No posts yet. Create your first post above!")
		return
	}
	fmt.Fprintf(w, "Posts (%d)\n", len(posts))
	for i, post := range posts {
		fmt.Fprintf(w, "  %d. %s\n", i+1, post.Title)
		for _, line := range board.PostMeta(post, loc) {
			fmt.Fprintf(w, "     %s\n", line)
		}
	}
}
