package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"github.com/xxxsen/mshelf/internal/auth"
	"github.com/xxxsen/mshelf/internal/model"
	"github.com/xxxsen/mshelf/internal/notify"
	"github.com/xxxsen/mshelf/internal/organizer"
	appErr "github.com/xxxsen/mshelf/internal/pkg/errors"
	"github.com/xxxsen/mshelf/internal/remote"
)

const (
	envServer = "MSHELF_SERVER"
	envToken  = "MSHELF_TOKEN"
)

type clientOptions struct {
	server string
	token  string
}

func (o *clientOptions) bind(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&o.server, "server", os.Getenv(envServer), "server address, env "+envServer)
	flags.StringVar(&o.token, "token", os.Getenv(envToken), "bearer token, env "+envToken)
}

// shell is one signed-in client workspace bound to a command invocation.
type shell struct {
	ctx  context.Context
	ws   *organizer.Workspace
	out  io.Writer
	stop func()
}

func (o *clientOptions) open(cmd *cobra.Command) (*shell, error) {
	if o.server == "" {
		return nil, fmt.Errorf("--server or %s is required", envServer)
	}
	if o.token == "" {
		return nil, fmt.Errorf("--token or %s is required", envToken)
	}
	session, err := auth.NewTokenSession(o.token)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, err = auth.Bind(ctx, session)
	if err != nil {
		return nil, err
	}

	client := remote.NewClient(o.server, o.token)
	ws := organizer.NewWorkspace(organizer.Backend{
		Notes:   remote.NewTable[model.Note](client, organizer.ResourceNotes),
		Links:   remote.NewTable[model.Link](client, organizer.ResourceLinks),
		Todos:   remote.NewTable[model.Todo](client, organizer.ResourceTodos),
		Files:   remote.NewTable[model.FileAsset](client, organizer.ResourceFiles),
		Objects: remote.NewObjectStore(client),
	}, organizer.Options{
		Notifier: notify.Console{
			Out:   cmd.OutOrStdout(),
			Err:   cmd.ErrOrStderr(),
			Color: !color.NoColor && cmd.OutOrStdout() == io.Writer(os.Stdout),
		},
	})
	unfollow := ws.Follow(session)
	return &shell{
		ctx: ctx,
		ws:  ws,
		out: cmd.OutOrStdout(),
		stop: func() {
			unfollow()
			ws.Close()
		},
	}, nil
}

// withShell adapts a workspace action to a cobra RunE.
func withShell(opts *clientOptions, fn func(sh *shell, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		sh, err := opts.open(cmd)
		if err != nil {
			return err
		}
		defer sh.stop()
		return fn(sh, args)
	}
}

func findRow[T any, D any](ctx context.Context, res *organizer.Resource[T, D], id string) (T, error) {
	var zero T
	rows, err := res.Store.FetchAll(ctx)
	if err != nil {
		return zero, err
	}
	for _, row := range rows {
		if res.Schema.ID(row) == id {
			return row, nil
		}
	}
	return zero, fmt.Errorf("%s %s: %w", res.Schema.Name, id, appErr.ErrNotFound)
}

func createRow[T any, D any](ctx context.Context, res *organizer.Resource[T, D], fill func(*D)) error {
	if err := res.Session.StartNew(ctx); err != nil {
		return err
	}
	res.Session.Update(fill)
	return res.Coordinator.Submit(ctx)
}

func editRow[T any, D any](ctx context.Context, res *organizer.Resource[T, D], id string, fill func(*D)) error {
	row, err := findRow(ctx, res, id)
	if err != nil {
		return err
	}
	if err := res.Session.Edit(ctx, row); err != nil {
		return err
	}
	res.Session.Update(fill)
	return res.Coordinator.Submit(ctx)
}

func removeRow[T any, D any](ctx context.Context, res *organizer.Resource[T, D], id string) error {
	row, err := findRow(ctx, res, id)
	if err != nil {
		return err
	}
	return res.Coordinator.Delete(ctx, row)
}

func formatCtime(ms int64) string {
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}

func printTable(w io.Writer, header string, lines []string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, header); err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(tw, line); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func newNotesCmd(opts *clientOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "notes", Short: "manage notes"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "list notes, newest first",
		Args:  cobra.NoArgs,
		RunE: withShell(opts, func(sh *shell, _ []string) error {
			notes, err := sh.ws.Notes.Store.FetchAll(sh.ctx)
			if err != nil {
				return err
			}
			lines := make([]string, 0, len(notes))
			for _, n := range notes {
				lines = append(lines, fmt.Sprintf("%s\t%s\t%s", n.ID, n.Title, formatCtime(n.Ctime)))
			}
			return printTable(sh.out, "ID\tTITLE\tCREATED", lines)
		}),
	})

	var title, content string
	add := &cobra.Command{
		Use:   "add",
		Short: "create a note",
		Args:  cobra.NoArgs,
		RunE: withShell(opts, func(sh *shell, _ []string) error {
			return createRow(sh.ctx, sh.ws.Notes, func(d *organizer.NoteDraft) {
				d.Title, d.Content = title, content
			})
		}),
	}
	add.Flags().StringVar(&title, "title", "", "note title")
	add.Flags().StringVar(&content, "content", "", "note body")
	cmd.AddCommand(add)

	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "edit a note",
		Args:  cobra.ExactArgs(1),
	}
	edit.Flags().StringVar(&title, "title", "", "new title")
	edit.Flags().StringVar(&content, "content", "", "new body")
	edit.RunE = withShell(opts, func(sh *shell, args []string) error {
		return editRow(sh.ctx, sh.ws.Notes, args[0], func(d *organizer.NoteDraft) {
			if edit.Flags().Changed("title") {
				d.Title = title
			}
			if edit.Flags().Changed("content") {
				d.Content = content
			}
		})
	})
	cmd.AddCommand(edit)

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "print a note",
		Args:  cobra.ExactArgs(1),
		RunE: withShell(opts, func(sh *shell, args []string) error {
			n, err := findRow(sh.ctx, sh.ws.Notes, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(sh.out, "%s\n\n%s\n", n.Title, n.Content)
			return err
		}),
	})
	cmd.AddCommand(newRemoveCmd(opts, "note", func(sh *shell, id string) error {
		return removeRow(sh.ctx, sh.ws.Notes, id)
	}))
	return cmd
}

func newLinksCmd(opts *clientOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "links", Short: "manage links"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "list links, newest first",
		Args:  cobra.NoArgs,
		RunE: withShell(opts, func(sh *shell, _ []string) error {
			links, err := sh.ws.Links.Store.FetchAll(sh.ctx)
			if err != nil {
				return err
			}
			lines := make([]string, 0, len(links))
			for _, l := range links {
				lines = append(lines, fmt.Sprintf("%s\t%s\t%s\t%s", l.ID, l.URL, l.Description, formatCtime(l.Ctime)))
			}
			return printTable(sh.out, "ID\tURL\tDESCRIPTION\tCREATED", lines)
		}),
	})

	var url, description string
	add := &cobra.Command{
		Use:   "add",
		Short: "save a link",
		Args:  cobra.NoArgs,
		RunE: withShell(opts, func(sh *shell, _ []string) error {
			return createRow(sh.ctx, sh.ws.Links, func(d *organizer.LinkDraft) {
				d.URL, d.Description = url, description
			})
		}),
	}
	add.Flags().StringVar(&url, "url", "", "absolute url")
	add.Flags().StringVar(&description, "description", "", "optional description")
	cmd.AddCommand(add)

	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "edit a link",
		Args:  cobra.ExactArgs(1),
	}
	edit.Flags().StringVar(&url, "url", "", "new url")
	edit.Flags().StringVar(&description, "description", "", "new description")
	edit.RunE = withShell(opts, func(sh *shell, args []string) error {
		return editRow(sh.ctx, sh.ws.Links, args[0], func(d *organizer.LinkDraft) {
			if edit.Flags().Changed("url") {
				d.URL = url
			}
			if edit.Flags().Changed("description") {
				d.Description = description
			}
		})
	})
	cmd.AddCommand(edit)
	cmd.AddCommand(newRemoveCmd(opts, "link", func(sh *shell, id string) error {
		return removeRow(sh.ctx, sh.ws.Links, id)
	}))
	return cmd
}

func newTodosCmd(opts *clientOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "todos", Short: "manage todos"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "list todos, newest first",
		Args:  cobra.NoArgs,
		RunE: withShell(opts, func(sh *shell, _ []string) error {
			todos, err := sh.ws.Todos.Store.FetchAll(sh.ctx)
			if err != nil {
				return err
			}
			lines := make([]string, 0, len(todos))
			for _, td := range todos {
				mark := "[ ]"
				if td.Completed {
					mark = "[x]"
				}
				lines = append(lines, fmt.Sprintf("%s\t%s\t%s", td.ID, mark, td.Text))
			}
			return printTable(sh.out, "ID\tDONE\tTEXT", lines)
		}),
	})

	var text string
	add := &cobra.Command{
		Use:   "add",
		Short: "add a todo",
		Args:  cobra.NoArgs,
		RunE: withShell(opts, func(sh *shell, _ []string) error {
			return createRow(sh.ctx, sh.ws.Todos, func(d *organizer.TodoDraft) {
				d.Text = text
			})
		}),
	}
	add.Flags().StringVar(&text, "text", "", "todo text")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle <id>",
		Short: "flip a todo between open and done",
		Args:  cobra.ExactArgs(1),
		RunE: withShell(opts, func(sh *shell, args []string) error {
			td, err := findRow(sh.ctx, sh.ws.Todos, args[0])
			if err != nil {
				return err
			}
			return sh.ws.ToggleTodo(sh.ctx, td)
		}),
	})
	cmd.AddCommand(newRemoveCmd(opts, "todo", func(sh *shell, id string) error {
		return removeRow(sh.ctx, sh.ws.Todos, id)
	}))
	return cmd
}

// newFilesCmd builds the files command, or the media command when media is
// set. Both operate on the same table through different views.
func newFilesCmd(opts *clientOptions, media bool) *cobra.Command {
	name, noun, short := "files", "file", "manage documents"
	if media {
		name, noun, short = "media", "media item", "manage images and videos"
	}
	resource := func(sh *shell) *organizer.Resource[model.FileAsset, organizer.FileDraft] {
		if media {
			return sh.ws.Media
		}
		return sh.ws.Files
	}
	uploader := func(sh *shell) *organizer.Uploader {
		if media {
			return sh.ws.MediaUploads
		}
		return sh.ws.FileUploads
	}

	cmd := &cobra.Command{Use: name, Short: short}

	var resolve bool
	list := &cobra.Command{
		Use:   "list",
		Short: "list " + name + ", newest first",
		Args:  cobra.NoArgs,
		RunE: withShell(opts, func(sh *shell, _ []string) error {
			assets, err := resource(sh).Store.FetchAll(sh.ctx)
			if err != nil {
				return err
			}
			lines := make([]string, 0, len(assets))
			for _, a := range assets {
				line := fmt.Sprintf("%s\t%s\t%s\t%d\t%s", a.ID, a.Kind(), a.Filename, a.Size, formatCtime(a.Ctime))
				if resolve {
					line += "\t" + resolvedURL(sh, a)
				}
				lines = append(lines, line)
			}
			header := "ID\tKIND\tNAME\tSIZE\tCREATED"
			if resolve {
				header += "\tURL"
			}
			return printTable(sh.out, header, lines)
		}),
	}
	list.Flags().BoolVar(&resolve, "resolve", media, "resolve a delivery url for every entry")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "upload <path>...",
		Short: "upload local files",
		Args:  cobra.MinimumNArgs(1),
		RunE: withShell(opts, func(sh *shell, args []string) error {
			candidates, closeAll, err := openCandidates(args)
			if err != nil {
				return err
			}
			defer closeAll()
			results, err := uploader(sh).Submit(sh.ctx, candidates)
			if err != nil {
				return err
			}
			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
					_, _ = fmt.Fprintf(sh.out, "skipped %s: %v\n", r.Name, r.Err)
					continue
				}
				_, _ = fmt.Fprintf(sh.out, "uploaded %s %s\n", r.Name, r.Asset.ID)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d uploads failed", failed, len(results))
			}
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "url <id>",
		Short: "print a delivery url",
		Args:  cobra.ExactArgs(1),
		RunE: withShell(opts, func(sh *shell, args []string) error {
			asset, err := findRow(sh.ctx, resource(sh), args[0])
			if err != nil {
				return err
			}
			res := sh.ws.Resolver.Mount(asset)
			if res.Resolve(sh.ctx) != organizer.Ready {
				return res.Err()
			}
			_, err = fmt.Fprintln(sh.out, res.URL())
			return err
		}),
	})
	cmd.AddCommand(newRemoveCmd(opts, noun, func(sh *shell, id string) error {
		return removeRow(sh.ctx, resource(sh), id)
	}))
	return cmd
}

func resolvedURL(sh *shell, asset model.FileAsset) string {
	res := sh.ws.Resolver.Mount(asset)
	if res.Resolve(sh.ctx) != organizer.Ready {
		return "(unavailable)"
	}
	return res.URL()
}

func newRemoveCmd(opts *clientOptions, noun string, fn func(sh *shell, id string) error) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "delete a " + noun,
		Args:  cobra.ExactArgs(1),
		RunE: withShell(opts, func(sh *shell, args []string) error {
			return fn(sh, args[0])
		}),
	}
}

// openCandidates opens every path for upload. The declared type is sniffed
// from content since a terminal offers no browser-provided mime type.
func openCandidates(paths []string) ([]organizer.Candidate, func(), error) {
	files := make([]*os.File, 0, len(paths))
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	candidates := make([]organizer.Candidate, 0, len(paths))
	for _, p := range paths {
		mt, err := mimetype.DetectFile(p)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("detect type of %s: %w", p, err)
		}
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		files = append(files, f)
		info, err := f.Stat()
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		if info.IsDir() {
			closeAll()
			return nil, nil, fmt.Errorf("%s is a directory", p)
		}
		candidates = append(candidates, organizer.Candidate{
			Name:     filepath.Base(p),
			MimeType: mt.String(),
			Size:     info.Size(),
			Body:     f,
		})
	}
	return candidates, closeAll, nil
}
