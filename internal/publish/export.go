package publish

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"pagebuilder/internal/domain"
)

// ExportJSON writes the forest as an indented JSON array.
func ExportJSON(w io.Writer, blocks []domain.Block) error {
	if blocks == nil {
		blocks = []domain.Block{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(blocks); err != nil {
		return fmt.Errorf("export json: %w", err)
	}
	return nil
}

// WriteFile exports to path, replacing it atomically.
func WriteFile(path string, blocks []domain.Block) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".export-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := ExportJSON(tmp, blocks); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename export: %w", err)
	}
	return nil
}

// ImportJSON reads a forest written by ExportJSON. A file holding a full
// release envelope or a stringified schema is accepted too.
func ImportJSON(r io.Reader) ([]domain.Block, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read import: %w", err)
	}
	var probe struct {
		Release *struct {
			ThemeSchema json.RawMessage `json:"theme_schema"`
		} `json:"release"`
		ThemeSchema json.RawMessage `json:"theme_schema"`
	}
	trimmed := json.RawMessage(data)
	if len(data) > 0 && firstNonSpace(data) == '{' {
		if err := json.Unmarshal(data, &probe); err != nil {
			return nil, fmt.Errorf("decode import: %w", err)
		}
		trimmed = probe.ThemeSchema
		if probe.Release != nil {
			trimmed = probe.Release.ThemeSchema
		}
	}
	return DecodeSchema(trimmed)
}

// ReadFile imports the forest stored at path.
func ReadFile(path string) ([]domain.Block, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ImportJSON(f)
}

func firstNonSpace(b []byte) byte {
	for _, c := range b {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return c
	}
	return 0
}
