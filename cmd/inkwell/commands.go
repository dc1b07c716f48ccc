package main

import (
	"errors"
	"fmt"
	"time"

	"inkwell/internal/board"
	"inkwell/internal/client"

	"github.com/urfave/cli/v2"
)

func newApp(p prompter) *cli.App {
	return &cli.App{
		Name:  "inkwell",
		Usage: "Write, list, edit and delete blog posts",
		Description: `A terminal client for the blog API.

		Without a command it opens the interactive board. Flags can be set
		via environment variables, e.g.:

		--api => INKWELL_API_URL=http://localhost:5000/api
		`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api",
				Aliases: []string{"a"},
				Value:   client.DefaultBaseURL,
				Usage:   "API root URL",
				EnvVars: []string{"INKWELL_API_URL"},
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Usage:   "Per-request timeout (0 = none)",
				EnvVars: []string{"INKWELL_TIMEOUT"},
			},
		},
		Commands: []*cli.Command{
			uiCmd(p),
			listCmd(),
			showCmd(),
			createCmd(p),
			editCmd(p),
			deleteCmd(p),
			healthCmd(),
		},
		Action: func(ctx *cli.Context) error {
			return runUI(ctx.Context, ctx.App.Writer, board.New(apiClient(ctx)), p, time.Local)
		},
	}
}

func apiClient(ctx *cli.Context) *client.Client {
	return client.New(ctx.String("api"), client.WithTimeout(ctx.Duration("timeout")))
}

func uiCmd(p prompter) *cli.Command {
	return &cli.Command{
		Name:  "ui",
		Usage: "Open the interactive board (default)",
		Action: func(ctx *cli.Context) error {
			return runUI(ctx.Context, ctx.App.Writer, board.New(apiClient(ctx)), p, time.Local)
		},
	}
}

func listCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List posts, newest first",
		Action: func(ctx *cli.Context) error {
			posts, err := apiClient(ctx).ListPosts(ctx.Context)
			if err != nil {
				return fmt.Errorf("%s: %w", board.MsgFetchFailed, err)
			}
			w := ctx.App.Writer
			if len(posts) == 0 {
				fmt.Fprintln(w, "No posts yet.")
				return nil
			}
			for _, post := range posts {
				fmt.Fprintf(w, "[%s]\n", post.ID)
				fmt.Fprintln(w, board.RenderPost(post, time.Local))
			}
			return nil
		},
	}
}

func showCmd() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one post",
		ArgsUsage: "<id>",
		Action: func(ctx *cli.Context) error {
			id, err := requireID(ctx)
			if err != nil {
				return err
			}
			post, err := apiClient(ctx).GetPost(ctx.Context, id)
			if err != nil {
				return err
			}
			fmt.Fprint(ctx.App.Writer, board.RenderPost(*post, time.Local))
			return nil
		},
	}
}

func postFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Post title (prompted when omitted)"},
		&cli.StringFlag{Name: "content", Aliases: []string{"c"}, Usage: "Post content (prompted when omitted)"},
	}
}

// fieldValue returns the flag value, or prompts for it with def as default.
func fieldValue(ctx *cli.Context, p prompter, name, question, def string) (string, error) {
	if ctx.IsSet(name) {
		return ctx.String(name), nil
	}
	return p.Input(question, def)
}

func createCmd(p prompter) *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create a post",
		Flags: postFlags(),
		Action: func(ctx *cli.Context) error {
			title, err := fieldValue(ctx, p, "title", "Title:", "")
			if err != nil {
				return err
			}
			content, err := fieldValue(ctx, p, "content", "Content:", "")
			if err != nil {
				return err
			}
			if !(board.Draft{Title: title, Content: content}).Complete() {
				return errors.New(board.MsgIncompleteDraft)
			}

			post, err := apiClient(ctx).CreatePost(ctx.Context, title, content)
			if err != nil {
				return fmt.Errorf("%s: %w", board.MsgCreateFailed, err)
			}
			fmt.Fprintf(ctx.App.Writer, "%s [%s]\n", board.MsgCreated, post.ID)
			return nil
		},
	}
}

func editCmd(p prompter) *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Replace the title and content of a post",
		ArgsUsage: "<id>",
		Flags:     postFlags(),
		Action: func(ctx *cli.Context) error {
			id, err := requireID(ctx)
			if err != nil {
				return err
			}
			api := apiClient(ctx)
			current, err := api.GetPost(ctx.Context, id)
			if err != nil {
				return err
			}

			title, err := fieldValue(ctx, p, "title", "Title:", current.Title)
			if err != nil {
				return err
			}
			content, err := fieldValue(ctx, p, "content", "Content:", current.Content)
			if err != nil {
				return err
			}
			if !(board.Draft{Title: title, Content: content}).Complete() {
				return errors.New(board.MsgIncompleteDraft)
			}

			if _, err := api.UpdatePost(ctx.Context, id, title, content); err != nil {
				return fmt.Errorf("%s: %w", board.MsgUpdateFailed, err)
			}
			fmt.Fprintln(ctx.App.Writer, board.MsgUpdated)
			return nil
		},
	}
}

func deleteCmd(p prompter) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a post",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Skip the confirmation prompt"},
		},
		Action: func(ctx *cli.Context) error {
			id, err := requireID(ctx)
			if err != nil {
				return err
			}
			api := apiClient(ctx)

			if !ctx.Bool("yes") {
				post, err := api.GetPost(ctx.Context, id)
				if err != nil {
					return err
				}
				ok, err := confirm(p, fmt.Sprintf("Delete %q?", post.Title))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(ctx.App.Writer, "Cancelled.")
					return nil
				}
			}

			if err := api.DeletePost(ctx.Context, id); err != nil {
				return fmt.Errorf("%s: %w", board.MsgDeleteFailed, err)
			}
			fmt.Fprintln(ctx.App.Writer, board.MsgDeleted)
			return nil
		},
	}
}

func healthCmd() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check that the API is reachable",
		Action: func(ctx *cli.Context) error {
			h, err := apiClient(ctx).Health(ctx.Context)
			if err != nil {
				return err
			}
			fmt.Fprintf(ctx.App.Writer, "%s (%s)\n", h.Message, h.Timestamp)
			return nil
		},
	}
}

func requireID(ctx *cli.Context) (string, error) {
	id := ctx.Args().First()
	if id == "" {
		return "", cli.Exit("a post id is required", 2)
	}
	return id, nil
}
