// Package analysis turns a photo into a list of detected devices and, when a
// device worth showing is among them, a 3D model published under the served
// models directory.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/vbonduro/sintaxia/internal/asset"
	"github.com/vbonduro/sintaxia/internal/classes"
	"github.com/vbonduro/sintaxia/internal/detector"
	"github.com/vbonduro/sintaxia/internal/domain"
	"github.com/vbonduro/sintaxia/internal/generator"
	"github.com/vbonduro/sintaxia/internal/library"
)

// AssetURLPrefix is the public path the models directory is served under.
const AssetURLPrefix = "/modelos/"

const noObjectsSummary = "No se detectaron objetos."

// genericModels are plain placeholders shipped at the library root.
var genericModels = map[string]string{
	"laptop":   "laptop_basic.obj",
	"keyboard": "keyboard_basic.obj",
	"mouse":    "mouse_basic.obj",
	"monitor":  "monitor_basic.obj",
	"router":   "router_basic.obj",
	"switch":   "switch_basic.obj",
	"server":   "server_rack_basic.obj",
	"pc_tower": "pc_tower_basic.obj",
	"printer":  "printer_basic.obj",
	"phone":    "phone_basic.obj",
}

type AssetSource string

const (
	SourceNone       AssetSource = ""
	SourceLibrary    AssetSource = "library"
	SourceProcedural AssetSource = "procedural"
	SourceGeneric    AssetSource = "generic"
)

type Result struct {
	Summary    string
	Response   string
	Detections []domain.Detection
	Target     string
	AssetURL   string
	Source     AssetSource
	Warnings   []asset.Warning
}

type Detector interface {
	Detect(ctx context.Context, image []byte) ([]detector.Raw, error)
	LoadErr() error
}

type Library interface {
	Lookup(class string) (*library.Record, string, bool)
	HasAsset(class string) bool
	Root() string
}

type BundleCopier interface {
	CopyBundle(sourceObj, destDir string) (*asset.Result, error)
}

type Analyzer struct {
	detector  Detector
	library   Library
	copier    BundleCopier
	generator generator.Generator
	modelsDir string
	logger    *slog.Logger
	intN      func(int) int
}

// NewAnalyzer wires the pipeline. gen may be nil to skip the generated
// placeholder step.
func NewAnalyzer(det Detector, lib Library, copier BundleCopier, gen generator.Generator, modelsDir string, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		detector:  det,
		library:   lib,
		copier:    copier,
		generator: gen,
		modelsDir: modelsDir,
		logger:    logger,
		intN:      rand.IntN,
	}
}

func degraded(response string) *Result {
	return &Result{Summary: noObjectsSummary, Response: response}
}

// Analyze never fails: collaborator errors and panics become a degraded
// result whose Response explains what went wrong.
func (a *Analyzer) Analyze(ctx context.Context, imagePath string) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("analysis panicked", "image", imagePath, "panic", r)
			res = degraded(fmt.Sprintf("Error interno en el análisis: %v", r))
		}
	}()

	if abs, err := filepath.Abs(imagePath); err == nil {
		imagePath = abs
	}
	image, err := os.ReadFile(imagePath)
	if err != nil {
		a.logger.Warn("failed to read image", "image", imagePath, "error", err)
		return degraded("No se pudo leer la imagen: " + imagePath)
	}

	if err := a.detector.LoadErr(); err != nil {
		return degraded(fmt.Sprintf("Error cargando el detector: %v", err))
	}

	raw, err := a.detector.Detect(ctx, image)
	if err != nil {
		a.logger.Error("detection failed", "image", imagePath, "error", err)
		return degraded(fmt.Sprintf("No se pudo analizar la imagen: %v", err))
	}

	dets := normalize(raw)
	if len(dets) == 0 {
		return degraded("No se encontró ningún objeto relevante.")
	}

	res = &Result{Detections: dets}
	res.Summary = summarize(dets)
	res.Response = fmt.Sprintf("Se detectaron los siguientes objetos: %s.", res.Summary)

	target, ok := Select(dets, a.library.HasAsset)
	if !ok {
		res.Response += " (No se identificó un dispositivo TIC para el visor)"
		return res
	}
	res.Target = target

	a.resolveAsset(ctx, res, imagePath)
	switch res.Source {
	case SourceLibrary:
		res.Response += fmt.Sprintf(" (Modelo TIC: %s)", target)
	case SourceProcedural:
		res.Response += " (Modelo procedural)"
	case SourceGeneric:
		res.Response += " (Modelo genérico)"
	}

	a.logger.Info("image analyzed",
		"image", filepath.Base(imagePath),
		"detections", len(dets),
		"target", target,
		"source", string(res.Source),
		"asset_url", res.AssetURL,
	)
	return res
}

// resolveAsset tries the curated library, then the generator, then the
// generic placeholder, stopping at the first that yields a model.
func (a *Analyzer) resolveAsset(ctx context.Context, res *Result, imagePath string) {
	class := res.Target

	if _, src, ok := a.library.Lookup(class); ok {
		if url := a.publish(res, src); url != "" {
			res.AssetURL, res.Source = url, SourceLibrary
			return
		}
	}

	if a.generator != nil {
		if err := os.MkdirAll(a.modelsDir, 0755); err != nil {
			a.logger.Warn("failed to create models directory", "dir", a.modelsDir, "error", err)
		}
		name := fmt.Sprintf("%s_%d.obj", asset.Sanitize(class), 1000+a.intN(9000))
		out := filepath.Join(a.modelsDir, name)
		if err := a.generator.Generate(ctx, imagePath, class, out); err != nil {
			a.logger.Warn("placeholder generation failed", "class", class, "error", err)
		} else if _, err := os.Stat(out); err == nil {
			res.AssetURL, res.Source = AssetURLPrefix+name, SourceProcedural
			return
		}
	}

	if name, ok := genericModels[class]; ok {
		src := filepath.Join(a.library.Root(), name)
		if _, err := os.Stat(src); err == nil {
			if url := a.publish(res, src); url != "" {
				res.AssetURL, res.Source = url, SourceGeneric
			}
		}
	}
}

// publish copies the bundle at src into the models directory and returns its
// public URL, or "" when the model itself could not be copied.
func (a *Analyzer) publish(res *Result, src string) string {
	copied, err := a.copier.CopyBundle(src, a.modelsDir)
	if copied != nil {
		res.Warnings = append(res.Warnings, copied.Warnings...)
	}
	if err != nil {
		a.logger.Warn("failed to copy model bundle", "source", src, "error", err)
		return ""
	}
	return AssetURLPrefix + copied.Name()
}

func normalize(raw []detector.Raw) []domain.Detection {
	dets := make([]domain.Detection, 0, len(raw))
	for _, r := range raw {
		dets = append(dets, domain.Detection{
			ClassName:  classes.Normalize(r.Label),
			Confidence: math.Round(r.Confidence*100*100) / 100,
		})
	}
	return dets
}

// summarize lists the distinct classes in dets, sorted.
func summarize(dets []domain.Detection) string {
	names := make([]string, 0, len(dets))
	for _, d := range dets {
		names = append(names, d.ClassName)
	}
	slices.Sort(names)
	return strings.Join(slices.Compact(names), ", ")
}
