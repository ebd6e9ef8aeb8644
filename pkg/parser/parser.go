package parser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// readBufferSize is the initial read buffer. Longer lines grow past it.
const readBufferSize = 64 * 1024

// FileSource implements LineSource for reading a single log file.
// The file is opened lazily on the first call to Next. Lines may be of
// any length.
type FileSource struct {
	path string

	file    *os.File
	reader  *bufio.Reader
	lineNum int
	done    bool
}

// NewFileSource creates a LineSource that reads the file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Next returns the next line of the file without its "\n" or "\r\n"
// terminator, including empty lines. Returns io.EOF when the file has
// been fully read.
func (s *FileSource) Next(ctx context.Context) (*Line, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if s.done {
		return nil, io.EOF
	}

	if s.reader == nil {
		if err := s.open(); err != nil {
			return nil, err
		}
	}

	text, err := s.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}

	// A final line without a terminator is still a line.
	if err == nil || text != "" {
		s.lineNum++
		return &Line{
			Text:    trimEOL(text),
			Source:  s.path,
			LineNum: s.lineNum,
		}, nil
	}

	s.done = true
	if err := s.Close(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Close releases the file handle. It is safe to call more than once.
func (s *FileSource) Close() error {
	if s.file != nil {
		err := s.file.Close()
		s.file = nil
		return err
	}
	return nil
}

func (s *FileSource) open() error {
	f, err := os.Open(s.path) // #nosec G304 -- paths come from the configured roots
	if err != nil {
		return fmt.Errorf("opening log file %s: %w", s.path, err)
	}

	s.file = f
	s.reader = bufio.NewReaderSize(f, readBufferSize)
	s.lineNum = 0

	return nil
}

func trimEOL(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}
