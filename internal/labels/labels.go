package labels

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Table is an indexed class-label table. The index of a label is the class
// index in the model's output layer; the pairing is validated once at load
// time instead of trusting two independently loaded arrays to line up.
type Table struct {
	labels []string
}

// Load reads one label per line and validates the count against the model's
// declared class count. classCount <= 0 skips the check (unknown models).
func Load(r io.Reader, classCount int) (*Table, error) {
	scanner := bufio.NewScanner(r)
	var labels []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("label file contains no labels")
	}
	if classCount > 0 && len(labels) != classCount {
		return nil, fmt.Errorf("label count %d does not match model class count %d", len(labels), classCount)
	}
	return &Table{labels: labels}, nil
}

// LoadFile is Load over a file path.
func LoadFile(path string, classCount int) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open label file %s: %w", path, err)
	}
	defer f.Close()
	return Load(f, classCount)
}

func (t *Table) Len() int {
	return len(t.labels)
}

// Label returns the label for a class index.
func (t *Table) Label(index int) (string, error) {
	if index < 0 || index >= len(t.labels) {
		return "", fmt.Errorf("class index %d out of range [0,%d)", index, len(t.labels))
	}
	return t.labels[index], nil
}
