// Package importers turns uploaded or on-disk documents into library books.
//
// # Architecture
//
//	File bytes → renderer.Registry.Detect → renderer.Document → BookDraft → Library.AddBook
//
// The Importer handles one document: it sniffs the format, reads metadata
// through the renderer, stores the bytes with a storage.Client and writes a
// cover thumbnail. The Pipeline runs many files and reports per-file results;
// a failing file never aborts the batch.
//
// # Metadata Fallbacks
//
//   - EPUB title and author come from the OPF package, else "Unknown Title"
//     and "Unknown Author".
//   - PDF title comes from the Info dictionary, else the file name without
//     its extension. Author falls back to "Unknown Author".
//
// # Example Usage
//
//	importer := importers.NewImporter(renderer.NewDefaultRegistry(), files, coverCache, logger)
//	pipeline := importers.NewPipeline(importer)
//
//	result := pipeline.ImportFiles(ctx, store, []importers.File{{Name: "dune.epub", Data: data}})
//	result, err := pipeline.ImportDir(ctx, store, "/books")
package importers
