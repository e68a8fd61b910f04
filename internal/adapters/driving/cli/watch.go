package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/lectern-ai/lectern/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a folder and re-ingest changed courses",
	Long: `Watches a folder for new or changed course documents and re-ingests
them automatically, replacing each course by title. Changes are batched
over a short settle window so an editor's save burst is ingested once.

With no argument, the configured docs folder is watched. Runs until
interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if libraryService == nil {
		return errors.New("library service not configured")
	}

	dir := appConfig.Library.DocsDir
	if len(args) > 0 {
		dir = args[0]
	}
	if dir == "" {
		return errors.New("no directory given and no docs_dir configured")
	}

	w, err := watcher.New(libraryService, watcher.Config{Dir: dir})
	if err != nil {
		return err
	}

	cmd.Printf("Watching %s for course changes (ctrl+c to stop)\n", dir)

	if err := w.Run(cmd.Context()); !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
