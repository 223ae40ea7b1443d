package sqlite

import (
	"context"

	"github.com/pointerhq/portal/internal/portal/domain"
)

type readReceiptsRepo struct {
	q queryer
}

func (r *readReceiptsRepo) Create(ctx context.Context, rr domain.ReadReceipt) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO read_receipts (id, user_id, announcement_id, read_at)
		VALUES (?, ?, ?, ?)`,
		rr.ID, rr.UserID, rr.AnnouncementID, rr.ReadAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *readReceiptsRepo) ListByAnnouncement(ctx context.Context, announcementID string) ([]domain.ReadReceipt, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, user_id, announcement_id, read_at
		FROM read_receipts
		WHERE announcement_id = ?
		ORDER BY read_at ASC, id ASC`,
		announcementID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ReadReceipt
	for rows.Next() {
		var rr domain.ReadReceipt
		if err := rows.Scan(&rr.ID, &rr.UserID, &rr.AnnouncementID, &rr.ReadAt); err != nil {
			return nil, err
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

func (r *readReceiptsRepo) Exists(ctx context.Context, userID, announcementID string) (bool, error) {
	var n int64
	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM read_receipts WHERE user_id = ? AND announcement_id = ?`,
		userID, announcementID,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
