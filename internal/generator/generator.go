// Package generator produces placeholder models for classes the curated
// library does not cover.
package generator

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/vbonduro/sintaxia/internal/asset"
)

type Generator interface {
	// Generate writes an OBJ for class to outPath. imagePath is the photo the
	// class was detected in.
	Generate(ctx context.Context, imagePath, class, outPath string) error
}

const fallbackBase = "laptop.obj"

// baseModels is checked in order; the first key contained in the class wins.
var baseModels = []struct {
	key  string
	file string
}{
	{"laptop", "laptop.obj"},
	{"notebook", "laptop.obj"},
	{"computer", "laptop.obj"},
	{"pc", "laptop.obj"},
	{"router", "router.obj"},
	{"keyboard", "teclado.obj"},
	{"mouse", "mouse.obj"},
}

const cubeOBJ = `o laptop
v -0.5 -0.5 -0.5
v 0.5 -0.5 -0.5
v 0.5 0.5 -0.5
v -0.5 0.5 -0.5
v -0.5 -0.5 0.5
v 0.5 -0.5 0.5
v 0.5 0.5 0.5
v -0.5 0.5 0.5
f 1 2 3 4
f 5 6 7 8
f 1 2 6 5
f 2 3 7 6
f 3 4 8 7
f 4 1 5 8
`

// Placeholder copies a base model chosen by class from baseDir.
type Placeholder struct {
	baseDir string
	logger  *slog.Logger
}

func NewPlaceholder(baseDir string, logger *slog.Logger) *Placeholder {
	return &Placeholder{baseDir: baseDir, logger: logger}
}

func (p *Placeholder) Generate(ctx context.Context, imagePath, class, outPath string) error {
	src, err := p.baseModel(class)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := asset.CopyFile(src, outPath); err != nil {
		return fmt.Errorf("failed to copy base model: %w", err)
	}
	p.logger.Info("placeholder model generated", "class", class, "base", filepath.Base(src), "out", outPath)
	return nil
}

// baseModel returns the base OBJ for class, creating the fallback cube when
// the base directory has none.
func (p *Placeholder) baseModel(class string) (string, error) {
	if err := p.ensureFallback(); err != nil {
		return "", err
	}

	class = strings.ToLower(class)
	for _, m := range baseModels {
		if !strings.Contains(class, m.key) {
			continue
		}
		path := filepath.Join(p.baseDir, m.file)
		if fileExists(path) {
			return path, nil
		}
	}
	return filepath.Join(p.baseDir, fallbackBase), nil
}

func (p *Placeholder) ensureFallback() error {
	if err := os.MkdirAll(p.baseDir, 0755); err != nil {
		return fmt.Errorf("failed to create base model directory: %w", err)
	}
	path := filepath.Join(p.baseDir, fallbackBase)
	if fileExists(path) {
		return nil
	}
	if err := os.WriteFile(path, []byte(cubeOBJ), 0644); err != nil {
		return fmt.Errorf("failed to write fallback model: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Command runs an external generator as `<name> <args...> <image> <out> <class>`.
type Command struct {
	name string
	args []string
}

func NewCommand(name string, args ...string) *Command {
	return &Command{name: name, args: args}
}

func (c *Command) Generate(ctx context.Context, imagePath, class, outPath string) error {
	args := append(append([]string{}, c.args...), imagePath, outPath, class)
	cmd := exec.CommandContext(ctx, c.name, args...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("generator %s failed: %w: %s", c.name, err, msg)
		}
		return fmt.Errorf("generator %s failed: %w", c.name, err)
	}
	if !fileExists(outPath) {
		return fmt.Errorf("generator %s produced no model at %s", c.name, outPath)
	}
	return nil
}
