//go:build gocv

package opencv

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/vbonduro/sintaxia/internal/detector"
)

type YOLODetector struct {
	mu  sync.Mutex
	net gocv.Net
	cfg Config
}

func Load(cfg Config) (detector.Detector, error) {
	cfg = cfg.withDefaults()
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", cfg.ModelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		_ = net.Close()
		return nil, fmt.Errorf("failed to set backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		_ = net.Close()
		return nil, fmt.Errorf("failed to set target: %w", err)
	}

	return &YOLODetector{net: net, cfg: cfg}, nil
}

func (d *YOLODetector) Detect(ctx context.Context, imageData []byte) ([]detector.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("decoded image is empty")
	}

	size := d.cfg.InputSize
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	// gocv.Net is not safe for concurrent use.
	d.mu.Lock()
	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	d.mu.Unlock()
	defer output.Close()

	dims := output.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read output: %w", err)
	}

	cands := decodeOutput(data, dims[1], dims[2], len(d.cfg.Labels), d.cfg.ScoreThreshold)
	if len(cands) == 0 {
		return nil, nil
	}

	boxes := make([]image.Rectangle, len(cands))
	scores := make([]float32, len(cands))
	for i, c := range cands {
		x0, y0 := int(c.cx-c.w/2), int(c.cy-c.h/2)
		boxes[i] = image.Rect(x0, y0, x0+int(c.w), y0+int(c.h))
		scores[i] = c.score
	}
	keep := gocv.NMSBoxes(boxes, scores, d.cfg.ScoreThreshold, d.cfg.NMSThreshold)

	raw := make([]detector.Raw, 0, len(keep))
	for _, i := range keep {
		raw = append(raw, detector.Raw{
			Label:      label(d.cfg.Labels, cands[i].classID),
			Confidence: float64(cands[i].score),
		})
	}
	return raw, nil
}

func (d *YOLODetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
