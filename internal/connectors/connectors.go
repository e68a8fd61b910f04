// Package connectors fetches course documents from remote sources.
//
// Course material often lives outside the local docs folder, published as
// a directory of transcript files in a GitHub repository or a shared
// Google Drive folder. A Fetcher pulls those files down as plain text so
// the library can ingest them exactly like local documents.
package connectors

import "context"

// Document is a single fetched course file, ready for ingestion.
type Document struct {
	// Name is the source file name. It becomes the fallback course title
	// when the document carries no Course Title header.
	Name string

	// Text is the full document content.
	Text string
}

// Fetcher retrieves course documents from a remote source.
type Fetcher interface {
	// Fetch returns every course document the source holds, in a stable
	// order. Files that are not plain-text course material are skipped.
	Fetch(ctx context.Context) ([]Document, error)
}
