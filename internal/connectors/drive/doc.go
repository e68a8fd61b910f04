// Package drive fetches course documents from a shared Google Drive
// folder.
//
// The fetcher lists the folder's direct children and pulls down course
// material in two forms: Google Docs are exported as plain text, and
// regular .txt and .md files are downloaded as-is. An API key is enough
// for link-shared public folders; private folders need a service
// account credentials file.
package drive
