package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/vbonduro/sintaxia/internal/domain"
)

const maxSuggestedNameLen = 25

// SuggestedName derives a model file stem from a request description.
func SuggestedName(description string) string {
	name := strings.ReplaceAll(description, " ", "_")
	if r := []rune(name); len(r) > maxSuggestedNameLen {
		name = string(r[:maxSuggestedNameLen])
	}
	if name == "" {
		return "modelo"
	}
	return name
}

type ModelingRequestStore struct {
	db *sql.DB
}

func NewModelingRequestStore(db *sql.DB) *ModelingRequestStore {
	return &ModelingRequestStore{db: db}
}

func (s *ModelingRequestStore) Create(ctx context.Context, description, instructions string) (*domain.ModelingRequest, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO modeling_requests (description, instructions, suggested_name) VALUES (?, ?, ?)
	`, description, instructions, SuggestedName(description))
	if err != nil {
		return nil, fmt.Errorf("failed to create modeling request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	r := &domain.ModelingRequest{}
	err = s.db.QueryRowContext(ctx, `
		SELECT id, description, instructions, suggested_name, created_at FROM modeling_requests WHERE id = ?
	`, id).Scan(&r.ID, &r.Description, &r.Instructions, &r.SuggestedName, &r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get modeling request: %w", err)
	}
	return r, nil
}

func (s *ModelingRequestStore) List(ctx context.Context) ([]*domain.ModelingRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description, instructions, suggested_name, created_at FROM modeling_requests ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list modeling requests: %w", err)
	}
	defer closeRows(rows)

	var requests []*domain.ModelingRequest
	for rows.Next() {
		r := &domain.ModelingRequest{}
		if err := rows.Scan(&r.ID, &r.Description, &r.Instructions, &r.SuggestedName, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan modeling request: %w", err)
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating modeling requests: %w", err)
	}
	return requests, nil
}
