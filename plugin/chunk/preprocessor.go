package chunk

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnsupportedFileType marks an upload whose extension has no loader.
// The boundary layer maps it to a client error.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// Preprocessor extracts plain text from an uploaded file before
// splitting. Structured formats are flattened so that field names stay
// next to their values in the chunk text.
type Preprocessor struct{}

// NewPreprocessor creates a preprocessor.
func NewPreprocessor() *Preprocessor {
	return &Preprocessor{}
}

// Extract reads the file content and returns text ready for the
// splitter. The filename's extension selects the loader.
func (p *Preprocessor) Extract(filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt", ".md", ".log":
		raw, err := io.ReadAll(r)
		if err != nil {
			return "", errors.Wrap(err, "read text file")
		}
		return string(raw), nil
	case ".json":
		return extractJSON(r)
	case ".csv":
		return extractCSV(r)
	default:
		return "", errors.Wrapf(ErrUnsupportedFileType, "extension %q", ext)
	}
}

// extractJSON flattens a JSON document into "path: value" lines so each
// scalar keeps its key context.
func extractJSON(r io.Reader) (string, error) {
	var root any
	dec := json.NewDecoder(r)
	if err := dec.Decode(&root); err != nil {
		return "", errors.Wrap(err, "decode json file")
	}

	var lines []string
	flattenJSON("", root, &lines)
	return strings.Join(lines, "\n"), nil
}

func flattenJSON(prefix string, node any, lines *[]string) {
	switch v := node.(type) {
	case map[string]any:
		// Sorted keys keep the extracted text stable across uploads of
		// the same file.
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			flattenJSON(joinPath(prefix, key), v[key], lines)
		}
	case []any:
		for i, child := range v {
			flattenJSON(fmt.Sprintf("%s[%d]", prefix, i), child, lines)
		}
	default:
		*lines = append(*lines, fmt.Sprintf("%s: %v", prefix, v))
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// extractCSV renders each data row as "header: value" lines, one blank
// line between rows, so the paragraph separator splits along rows.
func extractCSV(r io.Reader) (string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return "", errors.Wrap(err, "decode csv file")
	}
	if len(rows) == 0 {
		return "", nil
	}

	header := rows[0]
	var blocks []string
	for _, row := range rows[1:] {
		var lines []string
		for i, field := range row {
			name := fmt.Sprintf("column_%d", i+1)
			if i < len(header) {
				name = header[i]
			}
			lines = append(lines, fmt.Sprintf("%s: %s", name, field))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n"), nil
}
