// Package opencv runs a YOLO ONNX model through the OpenCV DNN module. The
// backend needs the gocv build tag; without it Load reports that OpenCV
// support is missing.
package opencv

const (
	DefaultInputSize      = 640
	DefaultScoreThreshold = 0.25
	DefaultNMSThreshold   = 0.45
)

type Config struct {
	ModelPath      string
	InputSize      int
	ScoreThreshold float32
	NMSThreshold   float32
	Labels         []string
}

func (c Config) withDefaults() Config {
	if c.InputSize <= 0 {
		c.InputSize = DefaultInputSize
	}
	if c.ScoreThreshold <= 0 {
		c.ScoreThreshold = DefaultScoreThreshold
	}
	if c.NMSThreshold <= 0 {
		c.NMSThreshold = DefaultNMSThreshold
	}
	if len(c.Labels) == 0 {
		c.Labels = COCOLabels
	}
	return c
}

// COCOLabels are the 80 class names YOLO models trained on COCO emit, in
// class-id order.
var COCOLabels = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat", "dog",
	"horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack", "umbrella",
	"handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball", "kite",
	"baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket", "bottle",
	"wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple", "sandwich", "orange",
	"broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair", "couch", "potted plant",
	"bed", "dining table", "toilet", "tv", "laptop", "mouse", "remote", "keyboard", "cell phone",
	"microwave", "oven", "toaster", "sink", "refrigerator", "book", "clock", "vase", "scissors",
	"teddy bear", "hair drier", "toothbrush",
}

func label(labels []string, id int) string {
	if id >= 0 && id < len(labels) {
		return labels[id]
	}
	return "unknown"
}

// candidate is a box scored against its best class, before NMS.
type candidate struct {
	classID int
	score   float32
	cx, cy  float32
	w, h    float32
}

// decodeOutput reads a YOLO output tensor of shape [1, rows, cols]. YOLOv8
// layouts are attribute-major (rows = 4 + classes, cols = anchors) with no
// objectness; YOLOv5 layouts are anchor-major (rows = anchors,
// cols = 5 + classes) and class scores are scaled by objectness.
func decodeOutput(data []float32, rows, cols, numClasses int, threshold float32) []candidate {
	if rows <= 0 || cols <= 0 || len(data) < rows*cols {
		return nil
	}
	var out []candidate
	if rows == 4+numClasses && cols > rows {
		for a := 0; a < cols; a++ {
			best, bestID := float32(0), -1
			for c := 0; c < numClasses; c++ {
				if s := data[(4+c)*cols+a]; s > best {
					best, bestID = s, c
				}
			}
			if bestID < 0 || best < threshold {
				continue
			}
			out = append(out, candidate{
				classID: bestID,
				score:   best,
				cx:      data[0*cols+a],
				cy:      data[1*cols+a],
				w:       data[2*cols+a],
				h:       data[3*cols+a],
			})
		}
		return out
	}

	for r := 0; r < rows; r++ {
		row := data[r*cols : (r+1)*cols]
		if len(row) < 5 {
			break
		}
		objectness := row[4]
		best, bestID := float32(0), -1
		for c := 5; c < len(row); c++ {
			if s := row[c] * objectness; s > best {
				best, bestID = s, c-5
			}
		}
		if bestID < 0 || best < threshold {
			continue
		}
		out = append(out, candidate{classID: bestID, score: best, cx: row[0], cy: row[1], w: row[2], h: row[3]})
	}
	return out
}
