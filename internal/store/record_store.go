package store

import (
	"context"
	"database/sql"
	"fmt"

	"snaplens/internal/domain"
)

// RecordStore persists gallery entries.
type RecordStore struct {
	db *sql.DB
}

func NewRecordStore(db *sql.DB) *RecordStore {
	return &RecordStore{db: db}
}

func (s *RecordStore) Create(ctx context.Context, storageKey, mimeType, description, responseText string) (*domain.PhotoRecord, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO records (storage_key, mime_type, description, response_text)
		VALUES (?, ?, ?, ?)
	`, storageKey, mimeType, description, responseText)
	if err != nil {
		return nil, fmt.Errorf("failed to create record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *RecordStore) GetByID(ctx context.Context, id int64) (*domain.PhotoRecord, error) {
	record := &domain.PhotoRecord{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, storage_key, mime_type, description, response_text, created_at
		FROM records WHERE id = ?
	`, id).Scan(&record.ID, &record.StorageKey, &record.MimeType, &record.Description, &record.ResponseText, &record.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	return record, nil
}

// List returns all records, newest first.
func (s *RecordStore) List(ctx context.Context) ([]*domain.PhotoRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, storage_key, mime_type, description, response_text, created_at
		FROM records ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]*domain.PhotoRecord, 0)
	for rows.Next() {
		record := &domain.PhotoRecord{}
		if err := rows.Scan(&record.ID, &record.StorageKey, &record.MimeType, &record.Description, &record.ResponseText, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}

	return records, nil
}

func (s *RecordStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("record not found")
	}

	return nil
}

// Clear deletes every record and returns their storage keys so the caller can
// clean up the backing files.
func (s *RecordStore) Clear(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT storage_key FROM records`)
	if err != nil {
		return nil, fmt.Errorf("failed to list storage keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan storage key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate storage keys: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return nil, fmt.Errorf("failed to clear records: %w", err)
	}

	return keys, nil
}
