package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lectern-ai/lectern/internal/connectors"
	"github.com/lectern-ai/lectern/internal/connectors/drive"
	"github.com/lectern-ai/lectern/internal/connectors/github"
)

var (
	ingestClear  bool
	ingestGitHub string
	ingestDrive  string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Ingest course documents into the library",
	Long: `Ingests course transcript documents (.txt or .md) into the library.

Paths may be files or directories. Directories are scanned for course
documents and courses already in the library are skipped; single files
always (re)ingest, replacing any course with the same title. With no
paths, the configured docs folder is ingested.

Remote sources are fetched with the credentials from the config file:
--github uses github.token, --drive uses google.api_key or
google.credentials_file.

Examples:
  lectern ingest
  lectern ingest ./docs --clear
  lectern ingest ./docs/course_1.txt
  lectern ingest --github anthropics/courses/transcripts@main
  lectern ingest --drive 1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestClear, "clear", false,
		"clear the library before a directory ingest")
	ingestCmd.Flags().StringVar(&ingestGitHub, "github", "",
		"ingest from a GitHub repository (owner/repo[/path][@ref])")
	ingestCmd.Flags().StringVar(&ingestDrive, "drive", "",
		"ingest from a Google Drive folder (id or URL)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if libraryService == nil {
		return errors.New("library service not configured")
	}
	ctx := cmd.Context()

	switch {
	case ingestGitHub != "":
		return ingestFromGitHub(ctx, cmd, ingestGitHub)
	case ingestDrive != "":
		return ingestFromDrive(ctx, cmd, ingestDrive)
	}

	paths := args
	if len(paths) == 0 {
		if appConfig.Library.DocsDir == "" {
			return errors.New("no paths given and no docs_dir configured")
		}
		paths = []string{appConfig.Library.DocsDir}
	}

	return ingestPaths(ctx, cmd, paths)
}

func ingestPaths(ctx context.Context, cmd *cobra.Command, paths []string) error {
	clearPending := ingestClear

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		if info.IsDir() {
			report, err := libraryService.IngestDir(ctx, path, clearPending)
			clearPending = false
			if err != nil {
				return fmt.Errorf("ingesting %s: %w", path, err)
			}
			cmd.Printf("%s: %d files seen, %d courses added (%d chunks), %d skipped\n",
				path, report.FilesSeen, report.CoursesAdded,
				report.ChunksAdded, report.CoursesSkipped)
			continue
		}

		course, chunks, err := libraryService.IngestFile(ctx, path)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", path, err)
		}
		cmd.Printf("Added %q (%d chunks)\n", course.Title, len(chunks))
	}

	return nil
}

func ingestFromGitHub(ctx context.Context, cmd *cobra.Command, locator string) error {
	loc, err := github.ParseLocator(locator)
	if err != nil {
		return err
	}

	fetcher := github.New(ctx, loc, appConfig.GitHub.Token)
	return ingestFetched(ctx, cmd, fetcher, loc.String())
}

func ingestFromDrive(ctx context.Context, cmd *cobra.Command, folder string) error {
	fetcher, err := drive.New(ctx, drive.Config{
		FolderID:        folder,
		APIKey:          appConfig.Google.APIKey,
		CredentialsFile: appConfig.Google.CredentialsFile,
	})
	if err != nil {
		return fmt.Errorf("creating Drive fetcher: %w", err)
	}

	return ingestFetched(ctx, cmd, fetcher, "drive folder "+fetcher.FolderID())
}

// ingestFetched pulls every document from the fetcher and ingests each as a
// course, using the file name minus its extension as the fallback title.
// A document that fails to parse is reported and skipped so one bad file
// does not abort a remote batch.
func ingestFetched(ctx context.Context, cmd *cobra.Command, fetcher connectors.Fetcher, origin string) error {
	docs, err := fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetching from %s: %w", origin, err)
	}

	if len(docs) == 0 {
		cmd.Printf("No course documents found at %s\n", origin)
		return nil
	}

	added, chunks := 0, 0
	for _, doc := range docs {
		title := strings.TrimSuffix(doc.Name, filepath.Ext(doc.Name))
		course, cc, err := libraryService.IngestText(ctx, doc.Text, title)
		if err != nil {
			cmd.Printf("  skipped %s: %v\n", doc.Name, err)
			continue
		}
		added++
		chunks += len(cc)
		cmd.Printf("  added %q (%d chunks)\n", course.Title, len(cc))
	}

	cmd.Printf("Ingested %d of %d documents (%d chunks) from %s\n",
		added, len(docs), chunks, origin)
	return nil
}
