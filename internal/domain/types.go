package domain

import "time"

// Detection is one object found in an image. Confidence is a percentage
// rounded to two decimals.
type Detection struct {
	ClassName  string  `json:"clase"`
	Confidence float64 `json:"confianza"`
}

type Analysis struct {
	ID          int64
	UploadKey   string
	Summary     string
	Response    string
	TargetClass string
	AssetURL    string
	Note        string
	LLMReply    string
	Detections  []Detection
	CreatedAt   time.Time
}

type Message struct {
	ID        int64
	Text      string
	Reply     string
	CreatedAt time.Time
}

type ModelingRequest struct {
	ID            int64
	Description   string
	Instructions  string
	SuggestedName string
	CreatedAt     time.Time
}

// DetectionRecord is one detection flattened with its analysis, for export.
type DetectionRecord struct {
	AnalysisID  int64   `parquet:"analysis_id" yaml:"analysis_id"`
	ClassName   string  `parquet:"class_name" yaml:"class_name"`
	Confidence  float64 `parquet:"confidence" yaml:"confidence"`
	TargetClass string  `parquet:"target_class" yaml:"target_class"`
	AssetURL    string  `parquet:"asset_url" yaml:"asset_url"`
	CreatedAt   string  `parquet:"created_at" yaml:"created_at"`
}
