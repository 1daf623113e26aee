package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/AnshRaj112/newsdesk-backend/internal/models"
)

type clientIPKey struct{}

// WithClientIP attaches the caller's address for activity records.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func ClientIPFrom(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// PostgresActivityLog stores workflow outcomes in the activity_log table.
type PostgresActivityLog struct {
	db *sql.DB
}

func NewPostgresActivityLog(db *sql.DB) *PostgresActivityLog {
	return &PostgresActivityLog{db: db}
}

func (l *PostgresActivityLog) Record(ctx context.Context, e models.ActivityEntry) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO activity_log (event, email, ip_address, success, detail)
		VALUES ($1, $2, $3, $4, $5)
	`, e.Event, nullString(e.Email), nullString(e.IPAddress), e.Success, nullString(e.Detail))
	if err != nil {
		return storeError(fmt.Errorf("insert activity: %w", err))
	}
	return nil
}

// List returns a page of entries, newest first.
func (l *PostgresActivityLog) List(ctx context.Context, limit, page int) (models.Page[models.ActivityEntry], error) {
	q := UserQuery{Limit: limit, Page: page}.normalized()

	var total int64
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity_log`).Scan(&total); err != nil {
		return models.Page[models.ActivityEntry]{}, storeError(err)
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, created_at, event, email, ip_address, success, detail
		FROM activity_log
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, q.Limit, (q.Page-1)*q.Limit)
	if err != nil {
		return models.Page[models.ActivityEntry]{}, storeError(err)
	}
	defer rows.Close()

	var entries []models.ActivityEntry
	for rows.Next() {
		var e models.ActivityEntry
		var email, ip, detail sql.NullString
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.Event, &email, &ip, &e.Success, &detail); err != nil {
			return models.Page[models.ActivityEntry]{}, storeError(err)
		}
		e.Email, e.IPAddress, e.Detail = email.String, ip.String, detail.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return models.Page[models.ActivityEntry]{}, storeError(err)
	}
	return models.NewPage(entries, total, q.Limit, q.Page), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// MemoryActivityLog keeps entries in process.
type MemoryActivityLog struct {
	mu      sync.Mutex
	entries []models.ActivityEntry
}

func NewMemoryActivityLog() *MemoryActivityLog {
	return &MemoryActivityLog{}
}

func (l *MemoryActivityLog) Record(_ context.Context, e models.ActivityEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.ID = int64(len(l.entries) + 1)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	l.entries = append(l.entries, e)
	return nil
}

func (l *MemoryActivityLog) List(_ context.Context, limit, page int) (models.Page[models.ActivityEntry], error) {
	q := UserQuery{Limit: limit, Page: page}.normalized()
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []models.ActivityEntry
	start := (q.Page - 1) * q.Limit
	for i := len(l.entries) - 1 - start; i >= 0 && len(out) < q.Limit; i-- {
		out = append(out, l.entries[i])
	}
	return models.NewPage(out, int64(len(l.entries)), q.Limit, q.Page), nil
}

// Entries returns a copy of everything recorded, oldest first.
func (l *MemoryActivityLog) Entries() []models.ActivityEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.ActivityEntry(nil), l.entries...)
}

var (
	_ ActivityRecorder = (*PostgresActivityLog)(nil)
	_ ActivityRecorder = (*MemoryActivityLog)(nil)
)
