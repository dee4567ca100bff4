package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/internal/catalogue"
	apperrors "github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/resilience"
)

// File reads every file matching a doublestar pattern (for example
// "content/**/*.json") and concatenates their records in sorted path order.
// A plain path is a pattern that matches itself.
type File struct {
	pattern string
	logger  *slog.Logger
}

// NewFile creates a file source for pattern.
func NewFile(pattern string) *File {
	return &File{
		pattern: pattern,
		logger:  slog.Default().With("component", "file-source"),
	}
}

func (f *File) Name() string {
	return "file:" + f.pattern
}

// Pattern returns the glob this source reads.
func (f *File) Pattern() string {
	return f.pattern
}

// Fetch decodes all matching files. .json files hold either an array of
// posts or an object with a "posts" array; .yaml/.yml files hold a sequence
// of posts or a mapping with a "posts" key.
func (f *File) Fetch(ctx context.Context) ([]catalogue.RawPost, error) {
	paths, err := doublestar.FilepathGlob(f.pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, resilience.Permanent(fmt.Errorf("expanding catalogue pattern %q: %w", f.pattern, err))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalogue files match %q", f.pattern)
	}
	sort.Strings(paths)

	var all []catalogue.RawPost
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		posts, err := decodeFile(path)
		if err != nil {
			return nil, err
		}
		f.logger.Debug("catalogue file decoded", "path", path, "posts", len(posts))
		all = append(all, posts...)
	}
	f.logger.Info("catalogue files read", "files", len(paths), "posts", len(all))
	return all, nil
}

type postsEnvelope struct {
	Posts []catalogue.RawPost `json:"posts" yaml:"posts"`
}

func decodeFile(path string) ([]catalogue.RawPost, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalogue file %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return decodeJSON(path, data)
	case ".yaml", ".yml":
		return decodeYAML(path, data)
	default:
		return nil, resilience.Permanent(fmt.Errorf("unsupported catalogue file type %s", path))
	}
}

// malformed reports a file that cannot be decoded. Decode failures count as
// an invalid catalogue and are not retried.
func malformed(path string, err error) error {
	return resilience.Permanent(fmt.Errorf("parsing catalogue file %s: %w: %w", path, apperrors.ErrInvalidCatalogue, err))
}

func decodeJSON(path string, data []byte) ([]catalogue.RawPost, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var posts []catalogue.RawPost
		if err := json.Unmarshal(trimmed, &posts); err != nil {
			return nil, malformed(path, err)
		}
		return posts, nil
	}
	var env postsEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, malformed(path, err)
	}
	return env.Posts, nil
}

func decodeYAML(path string, data []byte) ([]catalogue.RawPost, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, malformed(path, err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		var posts []catalogue.RawPost
		if err := root.Decode(&posts); err != nil {
			return nil, malformed(path, err)
		}
		return posts, nil
	}
	var env postsEnvelope
	if err := root.Decode(&env); err != nil {
		return nil, malformed(path, err)
	}
	return env.Posts, nil
}
