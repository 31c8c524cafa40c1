package filmmap

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// fieldSeparator separates the title, location and note columns of a
// dataset line. Repeated separators produce empty fields, which are dropped.
const fieldSeparator = "\t"

// maxLineSize bounds a single dataset line.
const maxLineSize = 1 << 20

// Entry is a usable dataset line.
type Entry struct {
	Title    string
	Location string
}

// ParseLine splits a dataset line into its title and raw location.
// Lines with fewer than two non-empty fields return ErrMalformedLine.
func ParseLine(line string) (Entry, error) {
	fields := make([]string, 0, 3)
	for _, f := range strings.Split(line, fieldSeparator) {
		if f != "" {
			fields = append(fields, f)
		}
		if len(fields) == 2 {
			break
		}
	}
	if len(fields) < 2 {
		return Entry{}, ErrMalformedLine
	}
	return Entry{Title: fields[0], Location: fields[1]}, nil
}

// ReadDataset reads all lines of an ISO-8859-1 encoded dataset.
func ReadDataset(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(charmap.ISO8859_1.NewDecoder().Reader(r))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatasetUnreadable, err)
	}
	return lines, nil
}

// LoadDataset opens and reads the dataset at path.
func LoadDataset(path string) ([]string, error) {
	fi, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatasetUnreadable, err)
	}
	defer fi.Close()

	return ReadDataset(fi)
}
