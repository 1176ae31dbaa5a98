package cmd

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
)

// maxLineSize bounds one JSON sample line.
const maxLineSize = 1 << 20

type line struct {
	number int
	text   []byte
}

// readLines returns the non-blank lines of r with their 1-based numbers.
func readLines(r io.Reader) ([]line, error) {
	var lines []line
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	n := 0
	for scanner.Scan() {
		n++
		text := scanner.Bytes()
		// ignore blank lines (useful if the file has a trailing newline)
		if len(bytes.TrimSpace(text)) == 0 {
			continue
		}
		lines = append(lines, line{number: n, text: append([]byte(nil), text...)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}
	return lines, nil
}

// openInput opens name for reading; "-" selects stdin.
func openInput(name string, stdin io.Reader) (io.ReadCloser, error) {
	if name == "-" {
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}
