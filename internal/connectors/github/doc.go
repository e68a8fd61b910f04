// Package github fetches course documents from a GitHub repository
// directory over the REST API.
//
// The fetcher lists a single directory, downloads every .txt and .md
// file in it, and returns the contents for ingestion. Small files come
// back inline through the contents API; files above the 1MB inline
// limit go through the raw download endpoint instead.
//
// Requests pass through a dual-strategy rate limiter: a client-side
// token bucket throttles proactively, and GitHub's X-RateLimit headers
// update a reactive budget so an unauthenticated client stops before
// exhausting its quota.
package github
