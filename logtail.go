package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nxadm/tail"
)

// LogSource returns the trailing window of a server log, oldest line first.
type LogSource interface {
	Name() string
	Tail(ctx context.Context, n int) ([]string, error)
}

// FileSource reads the trailing window of a log file on local disk.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string { return s.path }

// Tail reads the last n lines of the file, trimmed of surrounding whitespace.
// Reading starts at the window, not at the top of the file.
// A missing file yields ErrSourceUnavailable.
func (s *FileSource) Tail(ctx context.Context, n int) ([]string, error) {
	offset, err := windowOffset(s.path, n)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, s.path, err)
	}

	t, err := tail.TailFile(s.path, tail.Config{
		MustExist: true,
		Follow:    false,
		Location:  &tail.SeekInfo{Offset: offset, Whence: io.SeekStart},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, s.path, err)
	}

	var lines []string
	for line := range t.Lines {
		if ctx.Err() != nil {
			return nil, abandon(t, ctx.Err())
		}
		if line.Err != nil {
			return nil, abandon(t, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, s.path, line.Err))
		}
		lines = append(lines, strings.TrimSpace(line.Text))
		if len(lines) > 2*n {
			lines = append(lines[:0:0], lines[len(lines)-n:]...)
		}
	}
	if err := t.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, s.path, err)
	}

	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

// windowOffset returns the byte offset where the last n lines of path begin,
// scanning backwards from the end in fixed-size chunks.
func windowOffset(path string, n int) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return 0, err
	}
	end := stat.Size()
	if end == 0 || n <= 0 {
		return end, nil
	}

	const chunkSize = 4096
	chunk := make([]byte, chunkSize)
	pos := end
	seen := 0
	for pos > 0 {
		size := int64(chunkSize)
		if pos < size {
			size = pos
		}
		pos -= size
		if _, err := f.ReadAt(chunk[:size], pos); err != nil && err != io.EOF {
			return 0, err
		}
		for i := size - 1; i >= 0; i-- {
			if chunk[i] != '\n' || pos+i == end-1 {
				continue // the final newline only terminates the last line
			}
			seen++
			if seen == n {
				return pos + i + 1, nil
			}
		}
	}
	return 0, nil
}

// abandon stops t and drains its channel so the reader goroutine can exit.
func abandon(t *tail.Tail, err error) error {
	t.Kill(nil)
	for range t.Lines {
	}
	return err
}

// splitWindow splits raw log text into trimmed lines and keeps the last n.
func splitWindow(text string, n int) []string {
	text = strings.TrimRight(text, "\r\n")
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
