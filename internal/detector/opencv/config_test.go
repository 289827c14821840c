package opencv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCOCOLabels(t *testing.T) {
	require.Len(t, COCOLabels, 80)
	assert.Equal(t, "tv", COCOLabels[62])
	assert.Equal(t, "laptop", COCOLabels[63])
	assert.Equal(t, "cell phone", COCOLabels[67])
	assert.Equal(t, "unknown", label(COCOLabels, 80))
}

func TestWithDefaults(t *testing.T) {
	cfg := Config{ModelPath: "yolov8n.onnx"}.withDefaults()
	assert.Equal(t, DefaultInputSize, cfg.InputSize)
	assert.InDelta(t, DefaultScoreThreshold, cfg.ScoreThreshold, 1e-6)
	assert.InDelta(t, DefaultNMSThreshold, cfg.NMSThreshold, 1e-6)
	assert.Len(t, cfg.Labels, 80)

	custom := Config{InputSize: 320, Labels: []string{"router"}}.withDefaults()
	assert.Equal(t, 320, custom.InputSize)
	assert.Equal(t, []string{"router"}, custom.Labels)
}

func TestDecodeOutputAttributeMajor(t *testing.T) {
	// 2 classes, 8 anchors: rows cx, cy, w, h, class0, class1.
	const anchors = 8
	data := make([]float32, 6*anchors)
	set := func(row, anchor int, v float32) { data[row*anchors+anchor] = v }

	set(0, 1, 100)
	set(1, 1, 50)
	set(2, 1, 20)
	set(3, 1, 10)
	set(5, 1, 0.8)
	set(4, 3, 0.1)

	got := decodeOutput(data, 6, anchors, 2, 0.25)
	require.Len(t, got, 1)
	assert.Equal(t, candidate{classID: 1, score: 0.8, cx: 100, cy: 50, w: 20, h: 10}, got[0])
}

func TestDecodeOutputAnchorMajor(t *testing.T) {
	// 3 anchors, 2 classes: cx, cy, w, h, objectness, class0, class1.
	data := []float32{
		10, 10, 4, 4, 0.9, 0.9, 0.1,
		20, 20, 4, 4, 0.1, 0.9, 0.9,
		30, 30, 4, 4, 0.5, 0.2, 0.8,
	}

	got := decodeOutput(data, 3, 7, 2, 0.3)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].classID)
	assert.InDelta(t, 0.81, got[0].score, 1e-6)
	assert.Equal(t, 1, got[1].classID)
	assert.InDelta(t, 0.4, got[1].score, 1e-6)
}

func TestDecodeOutputTruncated(t *testing.T) {
	assert.Empty(t, decodeOutput(make([]float32, 10), 6, 8, 2, 0.25))
	assert.Empty(t, decodeOutput(make([]float32, 13), 2, 7, 2, 0.25))
	assert.Empty(t, decodeOutput(nil, 0, 0, 2, 0.25))
}

func TestLoadWithoutModel(t *testing.T) {
	_, err := Load(Config{ModelPath: "/nonexistent/yolov8n.onnx"})
	assert.Error(t, err)
}
