package page

import (
	"context"
	"fmt"
	"os"
)

// FileSource reads a saved page from disk on every Load, so edits to the file
// show up on the next rescan.
type FileSource struct {
	Path string
}

func (s FileSource) Load(ctx context.Context) (*Extractor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open page %s: %w", s.Path, err)
	}
	defer f.Close()
	return Parse(f)
}

// StaticSource serves a page held in memory.
type StaticSource struct {
	HTML string
}

func (s StaticSource) Load(ctx context.Context) (*Extractor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ParseHTML(s.HTML)
}
