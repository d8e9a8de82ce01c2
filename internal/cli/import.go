package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/entrypoint"
	"github.com/mrlokans/bookshelf/internal/importers"
	"github.com/mrlokans/bookshelf/internal/renderer"
)

// ImportCommand imports every EPUB and PDF below a folder into the library
// configured by the environment.
type ImportCommand struct {
	Dir     string
	Owner   uint
	Verbose bool
	DryRun  bool

	Out    io.Writer
	Config *config.Config
}

func NewImportCommand() *ImportCommand {
	return &ImportCommand{Out: os.Stdout}
}

func (cmd *ImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)

	var owner uint
	fs.StringVar(&cmd.Dir, "dir", "", "Folder to import documents from (required)")
	fs.UintVar(&owner, "user", 0, "Owning user ID (required for the remote storage backend)")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Print every file")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Show what would be imported without making changes")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import -dir <path> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import EPUB and PDF documents from a folder into the library.\n")
		fmt.Fprintf(os.Stderr, "Storage is taken from the environment (LIBRARY_STORAGE, SNAPSHOT_PATH, ...).\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s import -dir ~/Books\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s import -dir ~/Books -dry-run -verbose\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Dir == "" {
		return fmt.Errorf("required flag -dir not provided")
	}
	cmd.Owner = owner
	return nil
}

func (cmd *ImportCommand) Run(ctx context.Context) error {
	out := cmd.Out
	if out == nil {
		out = os.Stdout
	}

	absDir, err := filepath.Abs(cmd.Dir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for %s: %w", cmd.Dir, err)
	}

	fmt.Fprintln(out, "Library Import")
	fmt.Fprintln(out, "==============")
	fmt.Fprintf(out, "Folder: %s\n", absDir)

	if cmd.DryRun {
		return cmd.preview(out, absDir)
	}

	cfg := cmd.Config
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	// Nothing is deleted during an import; leave the queue alone
	cfg.Tasks.Enabled = false

	log := entrypoint.NewLogger(cfg.Log)
	app, err := entrypoint.Build(cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	store, err := app.Libraries.Store(ctx, cmd.Owner)
	if err != nil {
		return fmt.Errorf("failed to load library: %w", err)
	}

	result, err := app.Importer.ImportDir(ctx, store, absDir)
	if err != nil {
		return err
	}

	if cmd.Verbose {
		fmt.Fprintln(out, "\n=== Files ===")
		for _, f := range result.Files {
			if f.OK() {
				fmt.Fprintf(out, "  [OK] %s -> \"%s\" by %s\n", f.Name, f.Book.Title, f.Book.Author)
			} else {
				fmt.Fprintf(out, "  [%s] %s: %s\n", f.Code, f.Name, f.Error)
			}
		}
	}

	fmt.Fprintln(out, "\n=== Import Summary ===")
	fmt.Fprintf(out, "Imported: %d/%d\n", result.Imported, len(result.Files))
	if result.Failed > 0 {
		fmt.Fprintf(out, "Failed: %d\n", result.Failed)
	}
	fmt.Fprintf(out, "Library now holds %d books\n", len(store.Snapshot().Books))
	return nil
}

// preview lists the files an import would pick up and their detected format.
func (cmd *ImportCommand) preview(out io.Writer, dir string) error {
	fmt.Fprintln(out, "DRY RUN MODE - No changes will be made")

	files, err := importers.ScanDir(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "No EPUB or PDF files found")
		return nil
	}

	renderers := renderer.NewDefaultRegistry()
	fmt.Fprintf(out, "Found %d files\n", len(files))
	for i, f := range files {
		head, err := readHead(f.Path)
		if err != nil {
			fmt.Fprintf(out, "%d. %s (unreadable: %v)\n", i+1, f.Name, err)
			continue
		}
		format, err := renderers.Detect(f.Name, head)
		if err != nil {
			fmt.Fprintf(out, "%d. %s (skipped: %v)\n", i+1, f.Name, err)
			continue
		}
		if cmd.Verbose {
			fmt.Fprintf(out, "%d. %s [%s] %s\n", i+1, f.Name, format, f.Path)
		} else {
			fmt.Fprintf(out, "%d. %s [%s]\n", i+1, f.Name, format)
		}
	}
	fmt.Fprintln(out, "\nDry run complete. Use without -dry-run to import.")
	return nil
}

// readHead returns the leading bytes used for format sniffing.
func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, 3072)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}
