package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/lectern-ai/lectern/internal/connectors"
)

// Google Workspace MIME types.
const (
	MimeTypeGoogleDoc = "application/vnd.google-apps.document"
	MimeTypeFolder    = "application/vnd.google-apps.folder"
)

// ExportMimeText is the export format for Google Docs.
const ExportMimeText = "text/plain"

// MaxExportSize is the largest file content fetched (5MB).
const MaxExportSize = 5 * 1024 * 1024

// listPageSize is the number of files requested per list page.
const listPageSize = 100

// Config holds the settings needed to reach a Drive folder.
type Config struct {
	// FolderID is a raw folder ID or a drive.google.com folder URL.
	FolderID string

	// APIKey grants read access to link-shared public folders.
	APIKey string

	// CredentialsFile is a service account JSON file for private
	// folders. Takes precedence over APIKey when both are set.
	CredentialsFile string
}

// Fetcher downloads course documents from one Drive folder.
type Fetcher struct {
	svc      *drive.Service
	folderID string
}

var _ connectors.Fetcher = (*Fetcher)(nil)

// New creates a fetcher for the folder named in cfg.
func New(ctx context.Context, cfg Config) (*Fetcher, error) {
	folderID := ParseFolderID(cfg.FolderID)
	if folderID == "" {
		return nil, errors.New("drive: folder ID is required")
	}

	var opts []option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		opts = append(opts,
			option.WithCredentialsFile(cfg.CredentialsFile),
			option.WithScopes(drive.DriveReadonlyScope),
		)
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	default:
		return nil, errors.New("drive: an API key or credentials file is required")
	}

	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return NewWithService(svc, folderID), nil
}

// NewWithService creates a fetcher around an existing Drive service.
func NewWithService(svc *drive.Service, folderID string) *Fetcher {
	return &Fetcher{svc: svc, folderID: folderID}
}

// FolderID returns the parsed folder id this fetcher reads from.
func (f *Fetcher) FolderID() string {
	return f.folderID
}

// ParseFolderID extracts the folder ID from a raw ID or a Drive folder
// URL such as https://drive.google.com/drive/folders/<id>?usp=sharing.
func ParseFolderID(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "/folders/"); i >= 0 {
		s = s[i+len("/folders/"):]
	}
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	return strings.Trim(s, "/")
}

// Fetch lists the folder and downloads every course document in it.
// Documents come back sorted by file name so ingestion order is stable.
func (f *Fetcher) Fetch(ctx context.Context) ([]connectors.Document, error) {
	files, err := f.listFolder(ctx)
	if err != nil {
		return nil, err
	}

	var docs []connectors.Document
	for _, file := range files {
		text, ok, err := f.fileText(ctx, file)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", file.Name, err)
		}
		if !ok {
			continue
		}
		docs = append(docs, connectors.Document{Name: file.Name, Text: text})
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// listFolder pages through the folder's direct children.
func (f *Fetcher) listFolder(ctx context.Context) ([]*drive.File, error) {
	query := fmt.Sprintf("'%s' in parents and trashed = false", f.folderID)

	var files []*drive.File
	pageToken := ""
	for {
		call := f.svc.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name, mimeType, size)").
			PageSize(listPageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list folder: %w", err)
		}

		files = append(files, page.Files...)
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}
	return files, nil
}

// fileText fetches the text of one file. ok reports whether the file is
// course material at all; folders, binaries and oversized files are
// skipped rather than failed.
func (f *Fetcher) fileText(ctx context.Context, file *drive.File) (string, bool, error) {
	switch file.MimeType {
	case MimeTypeFolder:
		return "", false, nil
	case MimeTypeGoogleDoc:
		text, err := f.export(ctx, file.Id)
		if err != nil {
			return "", false, err
		}
		return text, true, nil
	}

	if !isCourseFile(file.Name) || file.Size > MaxExportSize {
		return "", false, nil
	}

	text, err := f.download(ctx, file.Id)
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

// export converts a Google Doc to plain text.
func (f *Fetcher) export(ctx context.Context, fileID string) (string, error) {
	resp, err := f.svc.Files.Export(fileID, ExportMimeText).Context(ctx).Download()
	if err != nil {
		return "", fmt.Errorf("export file: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxExportSize))
	if err != nil {
		return "", fmt.Errorf("read export: %w", err)
	}
	return string(data), nil
}

// download fetches a regular file's bytes.
func (f *Fetcher) download(ctx context.Context, fileID string) (string, error) {
	resp, err := f.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxExportSize))
	if err != nil {
		return "", fmt.Errorf("read file content: %w", err)
	}
	return string(data), nil
}

// isCourseFile mirrors the local folder ingestion filter: visible .txt
// and .md files only.
func isCourseFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	ext := strings.ToLower(path.Ext(name))
	return ext == ".txt" || ext == ".md"
}
