// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package procnet

import (
	"bufio"
	"context"
	"io"
	"io/fs"
	"os"
	"strings"

	"grimm.is/scanwall/internal/errors"
)

// DefaultPath is the IPv4 TCP table.
const DefaultPath = "/proc/net/tcp"

// ErrEmptySnapshot is returned when the table has no content at all, not even a header.
var ErrEmptySnapshot = errors.New(errors.KindValidation, "empty connection table")

// Source yields raw table rows, header excluded.
type Source interface {
	ReadSnapshot(ctx context.Context) ([]string, error)
}

// FileSource reads a /proc/net/tcp formatted file.
type FileSource struct {
	Path string
}

// NewFileSource returns a FileSource for path, or DefaultPath when empty.
func NewFileSource(path string) *FileSource {
	if path == "" {
		path = DefaultPath
	}
	return &FileSource{Path: path}
}

func (s *FileSource) ReadSnapshot(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.Path)
	if err != nil {
		kind := errors.KindInternal
		switch {
		case errors.Is(err, fs.ErrNotExist):
			kind = errors.KindNotFound
		case errors.Is(err, fs.ErrPermission):
			kind = errors.KindPermission
		}
		return nil, errors.Attr(errors.Wrapf(err, kind, "open connection table"), "path", s.Path)
	}
	defer f.Close()

	lines, err := ReadAll(f)
	if err != nil {
		return nil, errors.Attr(err, "path", s.Path)
	}
	return lines, nil
}

// ReadAll reads rows from r, dropping the header line.
func ReadAll(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	header := true
	for scanner.Scan() {
		if header {
			header = false
			continue
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "read connection table")
	}
	if header {
		return nil, ErrEmptySnapshot
	}
	return lines, nil
}
