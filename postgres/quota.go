package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"moviegate/ratelimit"
)

var _ ratelimit.Store = (*QuotaRepository)(nil)

// QuotaModel is one client window counter.
type QuotaModel struct {
	Key         string    `gorm:"primaryKey"`
	WindowStart time.Time `gorm:"not null"`
	Count       int64     `gorm:"not null;default:0"`
	ExpiresAt   time.Time `gorm:"not null;index"`
}

// TableName specifies the table name for GORM
func (QuotaModel) TableName() string {
	return "rate_limit_counters"
}

// QuotaRepository implements ratelimit.Store on top of a single upsert.
// The row lock taken by ON CONFLICT serializes concurrent takes on a key.
type QuotaRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewQuotaRepository(db *gorm.DB) *QuotaRepository {
	return &QuotaRepository{db: db, now: time.Now}
}

const takeSQL = `
INSERT INTO rate_limit_counters (key, window_start, count, expires_at)
VALUES (?, ?, 1, ?)
ON CONFLICT (key) DO UPDATE SET
	count = CASE
		WHEN rate_limit_counters.window_start >= EXCLUDED.window_start THEN rate_limit_counters.count + 1
		ELSE 1
	END,
	window_start = GREATEST(rate_limit_counters.window_start, EXCLUDED.window_start),
	expires_at = GREATEST(rate_limit_counters.expires_at, EXCLUDED.expires_at)
RETURNING count`

func (r *QuotaRepository) Take(ctx context.Context, key string, limit int, window time.Duration) (ratelimit.Decision, error) {
	now := r.now()
	start := ratelimit.WindowStart(now, window)

	var count int64
	err := r.db.WithContext(ctx).Raw(takeSQL, key, start, start.Add(window)).Scan(&count).Error
	if err != nil {
		return ratelimit.Decision{}, err
	}

	return ratelimit.Decide(count, limit, start, window, now), nil
}

// DeleteExpired removes counters whose window has ended.
func (r *QuotaRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", r.now()).Delete(&QuotaModel{})
	return res.RowsAffected, res.Error
}
