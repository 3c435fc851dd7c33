package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// window bounds how much of a large file is scanned.
const window = 1 << 20

// Read returns the last maxLines lines of the file at path, or every line
// when maxLines <= 0. A missing file yields no lines and no error. Only the
// final megabyte of large files is scanned.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat log: %w", err)
	}
	partial := false
	if info.Size() > window {
		if _, err := file.Seek(info.Size()-window, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek log: %w", err)
		}
		partial = true
	}

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), window)
	for scanner.Scan() {
		if partial {
			// first line after the seek is likely cut
			partial = false
			continue
		}
		lines = append(lines, scanner.Text())
		if maxLines > 0 && len(lines) > 2*maxLines {
			lines = append(lines[:0], lines[len(lines)-maxLines:]...)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return lines, nil
}
