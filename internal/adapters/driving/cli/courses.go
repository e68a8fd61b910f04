package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List ingested courses",
	Long:  `Lists every course in the library with its chunk count.`,
	Args:  cobra.NoArgs,
	RunE:  runCourses,
}

func init() {
	rootCmd.AddCommand(coursesCmd)
}

func runCourses(cmd *cobra.Command, _ []string) error {
	if libraryService == nil {
		return errors.New("library service not configured")
	}

	counts, err := libraryService.Courses(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing courses: %w", err)
	}

	if len(counts) == 0 {
		cmd.Println("No courses ingested yet. Run 'lectern ingest' first.")
		return nil
	}

	cmd.Println("Courses:")
	cmd.Println()
	total := 0
	for i, c := range counts {
		cmd.Printf("  [%d] %s (%d chunks)\n", i+1, c.Title, c.Chunks)
		total += c.Chunks
	}
	cmd.Println()
	cmd.Printf("%d courses, %d chunks\n", len(counts), total)
	return nil
}
