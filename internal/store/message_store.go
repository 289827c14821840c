package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vbonduro/sintaxia/internal/domain"
)

type MessageStore struct {
	db *sql.DB
}

func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db}
}

func (s *MessageStore) Create(ctx context.Context, text, reply string) (*domain.Message, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (text, reply) VALUES (?, ?)
	`, text, reply)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	m := &domain.Message{}
	err = s.db.QueryRowContext(ctx, `
		SELECT id, text, reply, created_at FROM messages WHERE id = ?
	`, id).Scan(&m.ID, &m.Text, &m.Reply, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return m, nil
}

// ListRecent returns up to limit messages, newest first.
func (s *MessageStore) ListRecent(ctx context.Context, limit int) ([]*domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, reply, created_at FROM messages ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer closeRows(rows)

	var messages []*domain.Message
	for rows.Next() {
		m := &domain.Message{}
		if err := rows.Scan(&m.ID, &m.Text, &m.Reply, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}
