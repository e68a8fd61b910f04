// Package file provides the TOML configuration for lectern.
//
// Configuration lives at ~/.lectern/config.toml. Values resolve in three
// layers: compiled defaults, then the file, then environment variables
// (API keys and tokens only). The file is written with 0600 permissions
// since it can hold credentials.
package file
