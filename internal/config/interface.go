package config

import "context"

// Loader is the interface for a format-specific declaration loader.
type Loader interface {
	// Load reads declarations from the given paths and translates them into
	// the format-agnostic model. Directories are searched recursively for
	// files the loader understands.
	Load(ctx context.Context, paths ...string) (*Model, error)
}
