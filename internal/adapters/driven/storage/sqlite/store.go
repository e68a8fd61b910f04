package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/lectern-ai/lectern/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/lectern-ai/lectern/internal/core/domain"
	"github.com/lectern-ai/lectern/internal/core/ports/driven"
)

// Store is the SQLite-backed vector index. It owns the embedding service
// so the catalog and content collections are always embedded by the same
// model; mixing models would make their distances incomparable.
type Store struct {
	db       *sql.DB
	path     string
	embedder driven.EmbeddingService
}

var _ driven.VectorIndex = (*Store)(nil)

// NewStore opens (or creates) the index database under dataDir. If dataDir
// is empty, defaults to ~/.lectern/data/index.db.
func NewStore(dataDir string, embedder driven.EmbeddingService) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".lectern", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "index.db")

	// WAL for concurrent readers; foreign keys in the DSN so every pooled
	// connection enforces the course -> lessons/chunks cascade.
	db, err := sql.Open("sqlite",
		dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrIndexUnavailable, err)
	}

	s := &Store{
		db:       db,
		path:     dbPath,
		embedder: embedder,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %s", domain.ErrIndexUnavailable, err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Catalog ====================

// UpsertCourse adds or replaces a catalog record. The course title itself
// is the embedded text, which is what fuzzy resolution matches against.
func (s *Store) UpsertCourse(ctx context.Context, course domain.Course) error {
	embedding, err := s.embedder.Embed(ctx, course.Title)
	if err != nil {
		return fmt.Errorf("embedding course title: %w", err)
	}

	if course.IngestedAt.IsZero() {
		course.IngestedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO courses (title, instructor, link, embedding, ingested_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(title) DO UPDATE SET
			instructor = excluded.instructor,
			link = excluded.link,
			embedding = excluded.embedding,
			ingested_at = excluded.ingested_at
	`, course.Title, course.Instructor, course.Link,
		float32SliceToBytes(embedding), course.IngestedAt)
	if err != nil {
		return fmt.Errorf("saving course: %w", err)
	}

	// Replace the lesson list wholesale; partial lesson updates never happen.
	if _, err := tx.ExecContext(ctx, "DELETE FROM lessons WHERE course_title = ?", course.Title); err != nil {
		return fmt.Errorf("clearing lessons: %w", err)
	}

	for _, lesson := range course.Lessons {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO lessons (course_title, number, title, link)
			VALUES (?, ?, ?, ?)
		`, course.Title, lesson.Number, lesson.Title, lesson.Link)
		if err != nil {
			return fmt.Errorf("saving lesson %d: %w", lesson.Number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Course returns the catalog record for an exact title.
func (s *Store) Course(ctx context.Context, title string) (domain.Course, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT title, instructor, link, ingested_at
		FROM courses WHERE title = ?
	`, title)

	var course domain.Course
	var ingestedAt sql.NullTime
	if err := row.Scan(&course.Title, &course.Instructor, &course.Link, &ingestedAt); err != nil {
		if err == sql.ErrNoRows {
			return domain.Course{}, domain.ErrCourseNotFound
		}
		return domain.Course{}, fmt.Errorf("scanning course: %w", err)
	}
	if ingestedAt.Valid {
		course.IngestedAt = ingestedAt.Time
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT number, title, link
		FROM lessons WHERE course_title = ?
		ORDER BY number
	`, title)
	if err != nil {
		return domain.Course{}, fmt.Errorf("querying lessons: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var lesson domain.Lesson
		if err := rows.Scan(&lesson.Number, &lesson.Title, &lesson.Link); err != nil {
			return domain.Course{}, fmt.Errorf("scanning lesson: %w", err)
		}
		course.Lessons = append(course.Lessons, lesson)
	}
	if err := rows.Err(); err != nil {
		return domain.Course{}, fmt.Errorf("iterating lessons: %w", err)
	}

	return course, nil
}

// ResolveCourseTitle resolves fuzzy input to the nearest catalog title.
// The top match is accepted unconditionally, however far away it is.
func (s *Store) ResolveCourseTitle(ctx context.Context, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", domain.ErrNoMatchingCourse
	}

	queryVec, err := s.embedder.Embed(ctx, name)
	if err != nil {
		return "", fmt.Errorf("embedding course name: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT title, embedding FROM courses")
	if err != nil {
		return "", fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()

	best := ""
	bestDistance := math.MaxFloat64
	for rows.Next() {
		var title string
		var blob []byte
		if err := rows.Scan(&title, &blob); err != nil {
			return "", fmt.Errorf("scanning catalog entry: %w", err)
		}
		d := cosineDistance(queryVec, bytesToFloat32Slice(blob))
		if d < bestDistance {
			best = title
			bestDistance = d
		}
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterating catalog: %w", err)
	}

	if best == "" {
		return "", domain.ErrNoMatchingCourse
	}
	return best, nil
}

// CourseCounts lists ingested courses in title order with chunk counts.
func (s *Store) CourseCounts(ctx context.Context) ([]domain.CourseCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.title, COUNT(ch.id)
		FROM courses c
		LEFT JOIN chunks ch ON ch.course_title = c.title
		GROUP BY c.title
		ORDER BY c.title
	`)
	if err != nil {
		return nil, fmt.Errorf("querying course counts: %w", err)
	}
	defer rows.Close()

	var counts []domain.CourseCount //nolint:prealloc // size unknown from query
	for rows.Next() {
		var count domain.CourseCount
		if err := rows.Scan(&count.Title, &count.Chunks); err != nil {
			return nil, fmt.Errorf("scanning course count: %w", err)
		}
		counts = append(counts, count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating course counts: %w", err)
	}

	return counts, nil
}

// DeleteCourse removes a course with its lessons and chunks. Unknown
// titles are a no-op.
func (s *Store) DeleteCourse(ctx context.Context, title string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM courses WHERE title = ?", title)
	if err != nil {
		return fmt.Errorf("deleting course: %w", err)
	}
	return nil
}

// Clear drops both collections.
func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"chunks", "lessons", "courses"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ==================== Content ====================

// UpsertChunks embeds and stores content records keyed by their
// deterministic chunk ids. The embedded text is the chunk content prefixed
// with its course and lesson so retrieval can match on context the window
// itself may lack; the stored content stays the bare window.
func (s *Store) UpsertChunks(ctx context.Context, chunks []domain.CourseChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	inputs := make([]string, len(chunks))
	for i, chunk := range chunks {
		inputs[i] = embedInput(chunk)
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, inputs)
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding chunks: got %d embeddings for %d chunks", len(embeddings), len(chunks))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, course_title, lesson_number, lesson_link, position, content, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			course_title = excluded.course_title,
			lesson_number = excluded.lesson_number,
			lesson_link = excluded.lesson_link,
			position = excluded.position,
			content = excluded.content,
			embedding = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, chunk := range chunks {
		var lessonNumber any
		if chunk.LessonNumber != nil {
			lessonNumber = *chunk.LessonNumber
		}
		_, err := stmt.ExecContext(ctx, chunk.ID(), chunk.CourseTitle, lessonNumber,
			chunk.LessonLink, chunk.Index, chunk.Content, float32SliceToBytes(embeddings[i]))
		if err != nil {
			return fmt.Errorf("saving chunk %s: %w", chunk.ID(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Search embeds the query and runs a brute-force nearest-neighbour scan
// over the content collection, restricted by the filter.
func (s *Store) Search(ctx context.Context, query string, filter domain.SearchFilter, limit int) (domain.SearchResult, error) {
	if limit <= 0 {
		return domain.SearchResult{}, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("embedding query: %w", err)
	}

	sqlQuery := `
		SELECT course_title, lesson_number, lesson_link, position, content, embedding
		FROM chunks
	`
	var conds []string
	var args []any
	if filter.CourseTitle != "" {
		conds = append(conds, "course_title = ?")
		args = append(args, filter.CourseTitle)
	}
	if filter.LessonNumber != nil {
		conds = append(conds, "lesson_number = ?")
		args = append(args, *filter.LessonNumber)
	}
	if len(conds) > 0 {
		sqlQuery += " WHERE " + strings.Join(conds, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var hits []domain.ScoredChunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.CourseChunk
		var lessonNumber sql.NullInt64
		var blob []byte
		if err := rows.Scan(&chunk.CourseTitle, &lessonNumber, &chunk.LessonLink,
			&chunk.Index, &chunk.Content, &blob); err != nil {
			return domain.SearchResult{}, fmt.Errorf("scanning chunk: %w", err)
		}
		if lessonNumber.Valid {
			n := int(lessonNumber.Int64)
			chunk.LessonNumber = &n
		}
		hits = append(hits, domain.ScoredChunk{
			Chunk:    chunk,
			Distance: cosineDistance(queryVec, bytesToFloat32Slice(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return domain.SearchResult{}, fmt.Errorf("iterating chunks: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Chunk.Index < hits[j].Chunk.Index
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}

	return domain.SearchResult{Hits: hits}, nil
}

// embedInput is the text actually embedded for a chunk.
func embedInput(chunk domain.CourseChunk) string {
	if chunk.LessonNumber != nil {
		return fmt.Sprintf("Course %s Lesson %d content: %s", chunk.CourseTitle, *chunk.LessonNumber, chunk.Content)
	}
	return fmt.Sprintf("Course %s content: %s", chunk.CourseTitle, chunk.Content)
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// cosineDistance is 1 minus the cosine similarity of a and b. Zero or
// mismatched vectors score as maximally distant rather than erroring.
func cosineDistance(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 2
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
