package infra

import (
	"context"
	"fmt"
	"time"

	"delivery-gateway/videosync/domain"

	"github.com/jmoiron/sqlx"
)

type SQLLessonStore struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSQLLessonStore(db *sqlx.DB) *SQLLessonStore {
	return &SQLLessonStore{db: db, now: time.Now}
}

// ApplyVideoResult é um único UPDATE pelo guid; atômico sem lock extra.
func (s *SQLLessonStore) ApplyVideoResult(ctx context.Context, guid string, state domain.LessonState, duration *int) (int64, error) {
	var (
		q    string
		args []any
	)
	if state == domain.StatePublished {
		q = `UPDATE lessons SET status = ?, video_duration = ?, updated_at = ? WHERE video_guid = ?`
		args = []any{string(state), duration, s.now().UTC(), guid}
	} else {
		q = `UPDATE lessons SET status = ?, updated_at = ? WHERE video_guid = ?`
		args = []any{string(state), s.now().UTC(), guid}
	}

	res, err := s.db.ExecContext(ctx, s.db.Rebind(q), args...)
	if err != nil {
		return 0, fmt.Errorf("update lesson video %s: %w", guid, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Lesson é a visão mínima de uma aula usada por testes e ferramentas.
type Lesson struct {
	ID            string             `db:"id"`
	Title         string             `db:"title"`
	VideoGuid     string             `db:"video_guid"`
	Status        domain.LessonState `db:"status"`
	VideoDuration *int               `db:"video_duration"`
}

// CreateLesson insere uma aula em processing. A criação real acontece fora
// deste serviço; isto existe para semear ambientes locais e testes.
func (s *SQLLessonStore) CreateLesson(ctx context.Context, id, title, guid string) error {
	if _, err := s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO lessons (id, title, video_guid, status, updated_at) VALUES (?, ?, ?, ?, ?)`),
		id, title, guid, string(domain.StateProcessing), s.now().UTC(),
	); err != nil {
		return fmt.Errorf("insert lesson %s: %w", id, err)
	}
	return nil
}

func (s *SQLLessonStore) LessonByGuid(ctx context.Context, guid string) (Lesson, error) {
	var l Lesson
	if err := s.db.GetContext(ctx, &l,
		s.db.Rebind(`SELECT id, title, video_guid, status, video_duration FROM lessons WHERE video_guid = ?`), guid,
	); err != nil {
		return Lesson{}, fmt.Errorf("select lesson by guid %s: %w", guid, err)
	}
	return l, nil
}
