package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/vbonduro/sintaxia/internal/domain"
)

type AnalysisStore struct {
	db *sql.DB
}

func NewAnalysisStore(db *sql.DB) *AnalysisStore {
	return &AnalysisStore{db: db}
}

// Create records an analysis and its detections in one transaction.
func (s *AnalysisStore) Create(ctx context.Context, a *domain.Analysis) (*domain.Analysis, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO analyses (upload_key, summary, response, target_class, asset_url, note, llm_reply)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.UploadKey, a.Summary, a.Response, a.TargetClass, a.AssetURL, a.Note, a.LLMReply)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	for _, d := range a.Detections {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO detections (analysis_id, class_name, confidence) VALUES (?, ?, ?)
		`, id, d.ClassName, d.Confidence); err != nil {
			return nil, fmt.Errorf("failed to create detection: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit analysis: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *AnalysisStore) GetByID(ctx context.Context, id int64) (*domain.Analysis, error) {
	a := &domain.Analysis{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, upload_key, summary, response, target_class, asset_url, note, llm_reply, created_at
		FROM analyses WHERE id = ?
	`, id).Scan(&a.ID, &a.UploadKey, &a.Summary, &a.Response, &a.TargetClass, &a.AssetURL, &a.Note, &a.LLMReply, &a.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}

	a.Detections, err = s.detections(ctx, id)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListRecent returns up to limit analyses, newest first.
func (s *AnalysisStore) ListRecent(ctx context.Context, limit int) ([]*domain.Analysis, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, upload_key, summary, response, target_class, asset_url, note, llm_reply, created_at
		FROM analyses ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer closeRows(rows)

	var analyses []*domain.Analysis
	for rows.Next() {
		a := &domain.Analysis{}
		if err := rows.Scan(&a.ID, &a.UploadKey, &a.Summary, &a.Response, &a.TargetClass, &a.AssetURL, &a.Note, &a.LLMReply, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		analyses = append(analyses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analyses: %w", err)
	}

	for _, a := range analyses {
		if a.Detections, err = s.detections(ctx, a.ID); err != nil {
			return nil, err
		}
	}
	return analyses, nil
}

// ListDetections flattens every recorded detection with its analysis, oldest
// first.
func (s *AnalysisStore) ListDetections(ctx context.Context) ([]domain.DetectionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.analysis_id, d.class_name, d.confidence, a.target_class, a.asset_url, a.created_at
		FROM detections d JOIN analyses a ON a.id = d.analysis_id
		ORDER BY d.analysis_id ASC, d.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list detections: %w", err)
	}
	defer closeRows(rows)

	var records []domain.DetectionRecord
	for rows.Next() {
		var r domain.DetectionRecord
		var createdAt time.Time
		if err := rows.Scan(&r.AnalysisID, &r.ClassName, &r.Confidence, &r.TargetClass, &r.AssetURL, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		r.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating detections: %w", err)
	}
	return records, nil
}

func (s *AnalysisStore) detections(ctx context.Context, analysisID int64) ([]domain.Detection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT class_name, confidence FROM detections WHERE analysis_id = ? ORDER BY id ASC
	`, analysisID)
	if err != nil {
		return nil, fmt.Errorf("failed to list detections: %w", err)
	}
	defer closeRows(rows)

	var dets []domain.Detection
	for rows.Next() {
		var d domain.Detection
		if err := rows.Scan(&d.ClassName, &d.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		dets = append(dets, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating detections: %w", err)
	}
	return dets, nil
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		slog.Error("failed to close rows", "error", err)
	}
}
