// Command generate_demo writes a folder of sample public domain books and
// imports them, with a few notes and bookmarks, into the configured library.
// Usage: go run cmd/generate_demo/main.go [-out path/to/books] [-import=false]
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/entrypoint"
	"github.com/mrlokans/bookshelf/internal/importers"
	"github.com/mrlokans/bookshelf/internal/renderer/renderertest"
)

const defaultDemoBooksPath = "./demo/books"

// demoBook is one generated document and the notes attached after import.
type demoBook struct {
	File     string
	Title    string
	Author   string
	Subject  string
	Chapters []string // EPUB only
	Pages    int      // PDF only
	Cover    bool
	Notes    []string
}

func main() {
	out := flag.String("out", defaultDemoBooksPath, "folder the sample documents are written to")
	doImport := flag.Bool("import", true, "import the documents into the library configured by the environment")
	flag.Parse()

	log.Printf("Writing demo books to %s...", *out)
	if err := os.MkdirAll(*out, 0o755); err != nil {
		log.Fatalf("Failed to create demo folder: %v", err)
	}

	books := publicDomainBooks()
	for _, b := range books {
		if err := os.WriteFile(filepath.Join(*out, b.File), b.document(), 0o644); err != nil {
			log.Fatalf("Failed to write %s: %v", b.File, err)
		}
		log.Printf("Wrote: %s by %s", b.Title, b.Author)
	}

	if !*doImport {
		log.Println("Demo books generated successfully!")
		return
	}

	cfg := config.NewConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	cfg.Tasks.Enabled = false

	app, err := entrypoint.Build(cfg, entrypoint.NewLogger(cfg.Log))
	if err != nil {
		log.Fatalf("Failed to open library: %v", err)
	}
	defer app.Close()

	ctx := context.Background()
	store, err := app.Libraries.Store(ctx, 0) // owner 0 for demo
	if err != nil {
		log.Fatalf("Failed to load library: %v", err)
	}

	for _, b := range books {
		book, err := app.Importer.ImportOne(ctx, store, importers.File{Name: b.File, Path: filepath.Join(*out, b.File)})
		if err != nil {
			log.Printf("Failed to import %s: %v", b.File, err)
			continue
		}
		for _, content := range b.Notes {
			if _, err := store.AddNote(ctx, book.ID, entities.NoteDraft{Content: content}); err != nil {
				log.Printf("Failed to add note to %s: %v", book.Title, err)
			}
		}
		if b.Pages > 1 {
			if _, err := store.AddBookmark(ctx, book.ID, entities.Marker{Page: 2}, "Start here"); err != nil {
				log.Printf("Failed to add bookmark to %s: %v", book.Title, err)
			}
		}
		log.Printf("Imported: %s by %s (%d notes)", book.Title, book.Author, len(b.Notes))
	}

	log.Println("Demo library generated successfully!")
}

func (b demoBook) document() []byte {
	if b.Pages > 0 {
		return renderertest.PDF(b.Title, b.Author, b.Pages)
	}
	return renderertest.EPUB(renderertest.EPUBOptions{
		Title:    b.Title,
		Author:   b.Author,
		Subject:  b.Subject,
		Chapters: b.Chapters,
		Cover:    b.Cover,
		Nav:      true,
	})
}

func publicDomainBooks() []demoBook {
	return []demoBook{
		// Marcus Aurelius - Meditations (Public Domain)
		{
			File:    "meditations.epub",
			Title:   "Meditations",
			Author:  "Marcus Aurelius",
			Subject: "Philosophy",
			Cover:   true,
			Chapters: []string{
				"You have power over your mind - not outside events. Realize this, and you will find strength.",
				"The happiness of your life depends upon the quality of your thoughts.",
				"Waste no more time arguing about what a good man should be. Be one.",
				"The soul becomes dyed with the color of its thoughts.",
			},
			Notes: []string{
				"Book II opens with the morning exercise.",
				"Compare with Seneca on the shortness of life.",
			},
		},

		// Seneca - Letters from a Stoic (Public Domain)
		{
			File:    "letters-from-a-stoic.epub",
			Title:   "Letters from a Stoic",
			Author:  "Seneca",
			Subject: "Philosophy",
			Chapters: []string{
				"We suffer more often in imagination than in reality.",
				"It is not that we have a short time to live, but that we waste a lot of it.",
				"Difficulties strengthen the mind, as labor does the body.",
			},
			Notes: []string{"Letter XIII: on groundless fears."},
		},

		// Jane Austen - Pride and Prejudice (Public Domain)
		{
			File:    "pride-and-prejudice.epub",
			Title:   "Pride and Prejudice",
			Author:  "Jane Austen",
			Subject: "Fiction",
			Cover:   true,
			Chapters: []string{
				"It is a truth universally acknowledged, that a single man in possession of a good fortune, must be in want of a wife.",
				"I could easily forgive his pride, if he had not mortified mine.",
				"Till this moment I never knew myself.",
			},
		},

		// Charles Darwin - On the Origin of Species (Public Domain)
		{
			File:   "origin-of-species.pdf",
			Title:  "On the Origin of Species",
			Author: "Charles Darwin",
			Pages:  12,
			Notes:  []string{"Chapter IV, natural selection, starts around page 5."},
		},

		// Sun Tzu - The Art of War (Public Domain)
		{
			File:   "the-art-of-war.pdf",
			Title:  "The Art of War",
			Author: "Sun Tzu",
			Pages:  6,
		},
	}
}
