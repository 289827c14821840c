// Package export writes recorded detections for offline analysis.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"

	"github.com/vbonduro/sintaxia/internal/domain"
)

const (
	FormatParquet = "parquet"
	FormatYAML    = "yaml"
)

var contentTypes = map[string]string{
	FormatParquet: "application/vnd.apache.parquet",
	FormatYAML:    "application/yaml",
}

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (string, error) {
	switch strings.TrimPrefix(strings.ToLower(s), ".") {
	case "parquet":
		return FormatParquet, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (supported: parquet, yaml)", s)
	}
}

func ContentType(format string) string {
	return contentTypes[format]
}

// Write encodes rows to w in the given format.
func Write(w io.Writer, format string, rows []domain.DetectionRecord) error {
	switch format {
	case FormatParquet:
		if err := parquet.Write(w, rows); err != nil {
			return fmt.Errorf("failed to write parquet: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if rows == nil {
			rows = []domain.DetectionRecord{}
		}
		if err := enc.Encode(rows); err != nil {
			return fmt.Errorf("failed to write yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}
