// Package trace renders and exports status payloads shown as the job trace.
package trace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const indent = "  "

// Format returns raw as two-space indented JSON. Bodies that are not valid
// JSON are returned trimmed but otherwise unchanged.
func Format(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	var out bytes.Buffer
	if err := json.Indent(&out, trimmed, "", indent); err != nil {
		return string(trimmed)
	}
	return out.String()
}

// Encode converts raw into the export format named by ext (".json",
// ".yaml" or ".yml"). Unknown extensions fall back to JSON.
func Encode(raw []byte, ext string) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode trace: %w", err)
		}
		var out bytes.Buffer
		enc := yaml.NewEncoder(&out)
		enc.SetIndent(len(indent))
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return out.Bytes(), nil
	default:
		if !json.Valid(raw) {
			return nil, fmt.Errorf("decode trace: invalid json")
		}
		return []byte(Format(raw) + "\n"), nil
	}
}

// Save writes raw to path, choosing the format from the file extension.
func Save(path string, raw []byte) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path is empty")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("no trace to save")
	}
	data, err := Encode(raw, filepath.Ext(path))
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create trace dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	return nil
}

// DefaultName returns the file name used when saving the trace of id
// without an explicit path.
func DefaultName(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		id = "latest"
	}
	id = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, id)
	return "flowbit-" + id + ".json"
}
