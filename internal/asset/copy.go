// Package asset copies OBJ model bundles (model, material library and
// textures) into a flat directory and rewrites their internal references so
// the copy loads without the original source tree.
package asset

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tga":  true,
	".bmp":  true,
	".gif":  true,
	".webp": true,
	".tif":  true,
	".tiff": true,
}

var materialExts = map[string]bool{
	".mtl": true,
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_\-.]`)

var errMissing = errors.New("file not found")

// ErrSameFile is returned when a copy would overwrite its own source.
var ErrSameFile = errors.New("source and destination are the same file")

// defaultStem names copied models whose file name sanitizes to nothing.
const defaultStem = "model"

// Sanitize replaces spaces with underscores and drops every character outside
// [A-Za-z0-9_.-].
func Sanitize(name string) string {
	return unsafeChars.ReplaceAllString(strings.ReplaceAll(name, " ", "_"), "")
}

// Warning records a bundle step that failed without aborting the copy.
type Warning struct {
	Step string
	Path string
	Err  error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s %s: %v", w.Step, w.Path, w.Err)
}

// Result describes a copied bundle. Obj is always set; the remaining fields
// list whatever companions made it across.
type Result struct {
	Obj      string
	Material string
	Textures []string
	Adjacent []string
	Warnings []Warning
}

// Name returns the file name of the copied model.
func (r *Result) Name() string {
	return filepath.Base(r.Obj)
}

type Copier struct {
	logger *slog.Logger
	intN   func(n int) int
}

func NewCopier(logger *slog.Logger) *Copier {
	return &Copier{logger: logger, intN: rand.IntN}
}

func (c *Copier) warn(res *Result, step, path string, err error) {
	res.Warnings = append(res.Warnings, Warning{Step: step, Path: path, Err: err})
	c.logger.Warn("bundle step failed", "step", step, "path", path, "error", err)
}

// CopyBundle copies sourceObj and its companions into destDir and returns
// the copied files. The only hard failure is not being able to copy the model
// itself; material and texture problems are reported as warnings.
func (c *Copier) CopyBundle(sourceObj, destDir string) (*Result, error) {
	srcObj, err := filepath.Abs(sourceObj)
	if err != nil {
		return nil, fmt.Errorf("invalid model path: %w", err)
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create destination directory: %w", err)
	}

	destObj := c.uniqueDest(destDir, modelFileName(srcObj))
	if err := copyFile(srcObj, destObj); err != nil {
		return nil, fmt.Errorf("failed to copy model: %w", err)
	}
	res := &Result{Obj: destObj}
	srcDir := filepath.Dir(srcObj)

	ref, hasRef := MaterialRef(srcObj)
	var srcMtl string
	if hasRef {
		candidate := resolveRef(srcDir, ref)
		if fileExists(candidate) {
			dest := filepath.Join(destDir, filepath.Base(candidate))
			if err := copyFile(candidate, dest); err != nil {
				c.warn(res, "copy material", candidate, err)
			} else {
				srcMtl = candidate
				res.Material = dest
				c.logger.Debug("copied material", "file", filepath.Base(dest))
			}
		} else {
			c.warn(res, "resolve material", candidate, errMissing)
		}
	}

	if res.Material == "" {
		c.copyAdjacent(res, srcDir, destDir)
		return res, nil
	}

	// Textures are read from the original material so relative paths still
	// resolve; the model directory is tried before the material directory.
	for _, texRef := range TextureRefs(srcMtl) {
		srcTex := resolveRef(srcDir, texRef)
		if !fileExists(srcTex) {
			srcTex = resolveRef(filepath.Dir(srcMtl), texRef)
		}
		if !fileExists(srcTex) {
			c.warn(res, "resolve texture", srcTex, errMissing)
			continue
		}
		if !imageExts[strings.ToLower(filepath.Ext(srcTex))] {
			continue
		}
		dest := filepath.Join(destDir, filepath.Base(srcTex))
		if fileExists(dest) {
			continue
		}
		if err := copyFile(srcTex, dest); err != nil {
			c.warn(res, "copy texture", srcTex, err)
			continue
		}
		res.Textures = append(res.Textures, dest)
	}

	if err := rewriteFile(res.Material, rewriteTextureRefs); err != nil {
		c.warn(res, "rewrite textures", res.Material, err)
	}

	mtlName := filepath.Base(res.Material)
	if ref != mtlName {
		err := rewriteFile(destObj, func(text string) string {
			return rewriteMaterialLib(text, mtlName)
		})
		if err != nil {
			c.warn(res, "rewrite mtllib", destObj, err)
		}
	}

	return res, nil
}

// copyAdjacent copies sibling material and image files when the model does
// not lead to a usable material library.
func (c *Copier) copyAdjacent(res *Result, srcDir, destDir string) {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		c.warn(res, "list source directory", srcDir, err)
		return
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !materialExts[ext] && !imageExts[ext] {
			continue
		}
		dest := filepath.Join(destDir, entry.Name())
		if fileExists(dest) {
			continue
		}
		src := filepath.Join(srcDir, entry.Name())
		if err := copyFile(src, dest); err != nil {
			c.warn(res, "copy adjacent", src, err)
			continue
		}
		res.Adjacent = append(res.Adjacent, dest)
	}
}

// modelFileName sanitizes the base name of path, falling back to a fixed stem
// when nothing but the extension survives.
func modelFileName(path string) string {
	name := Sanitize(filepath.Base(path))
	ext := filepath.Ext(name)
	if strings.TrimSuffix(name, ext) == "" {
		if ext == "" || ext == "." {
			ext = ".obj"
		}
		return defaultStem + ext
	}
	return name
}

// uniqueDest returns a path in destDir for filename that does not exist yet.
// The check is advisory: nothing stops a concurrent writer from taking the
// name between the check and the copy.
func (c *Copier) uniqueDest(destDir, filename string) string {
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)

	candidate := filepath.Join(destDir, filename)
	if !fileExists(candidate) {
		return candidate
	}
	for range 10000 {
		candidate = filepath.Join(destDir, fmt.Sprintf("%s_%d%s", stem, 1000+c.intN(9000), ext))
		if !fileExists(candidate) {
			return candidate
		}
	}
	return filepath.Join(destDir, fmt.Sprintf("%s_%d%s", stem, 10000+c.intN(90000), ext))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func samePath(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

// copyFile copies src to dst, carrying over the permission bits and the
// modification time. Copying a file onto itself fails with ErrSameFile.
func copyFile(src, dst string) error {
	if samePath(src, dst) {
		return ErrSameFile
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// CopyFile copies a single file the way bundle members are copied.
func CopyFile(src, dst string) error {
	return copyFile(src, dst)
}

func rewriteFile(path string, fn func(string) string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(fn(string(data))), info.Mode().Perm())
}
