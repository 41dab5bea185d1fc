// Package source reads command lines from files, stdin and literal lists.
package source

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Stdin is the path that selects standard input.
const Stdin = "-"

// maxLineSize bounds a single command line.
const maxLineSize = 1 << 20

// ReadLines returns the command lines of r in order. Blank lines and lines
// starting with '#' are dropped; surrounding whitespace is trimmed.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read commands: %w", err)
	}
	return lines, nil
}

// ReadFile reads command lines from path, or from stdin when path is "-".
func ReadFile(path string, stdin io.Reader) ([]string, error) {
	if path == Stdin {
		return ReadLines(stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open command file: %w", err)
	}
	defer f.Close()

	lines, err := ReadLines(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lines, nil
}

// Collect gathers command lines from files (in order) followed by literal
// commands. Literals are kept as given apart from trimming.
func Collect(paths []string, literals []string, stdin io.Reader) ([]string, error) {
	var lines []string
	for _, path := range paths {
		fileLines, err := ReadFile(path, stdin)
		if err != nil {
			return nil, err
		}
		lines = append(lines, fileLines...)
	}
	for _, literal := range literals {
		if literal = strings.TrimSpace(literal); literal != "" {
			lines = append(lines, literal)
		}
	}
	return lines, nil
}
