package sqlite

import (
	"context"
	"time"

	"github.com/pointerhq/portal/internal/portal/domain"
)

type announcementsRepo struct {
	q queryer
}

const announcementColumns = `id, title, description, sector, target_role, published_at, created_at, updated_at`

func scanAnnouncement(row interface{ Scan(dest ...any) error }) (domain.Announcement, error) {
	var a domain.Announcement
	err := row.Scan(
		&a.ID,
		&a.Title,
		&a.Description,
		&a.Sector,
		&a.TargetRole,
		&a.PublishedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

func (r *announcementsRepo) GetByID(ctx context.Context, id string) (domain.Announcement, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+announcementColumns+` FROM announcements WHERE id = ?`, id)
	a, err := scanAnnouncement(row)
	if err != nil {
		return domain.Announcement{}, mapNotFound(err)
	}
	return a, nil
}

func (r *announcementsRepo) ListAll(ctx context.Context) ([]domain.Announcement, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+announcementColumns+` FROM announcements ORDER BY published_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *announcementsRepo) Create(ctx context.Context, a domain.Announcement) error {
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO announcements (id, title, description, sector, target_role, published_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Title, a.Description, a.Sector, a.TargetRole, a.PublishedAt.UTC(), now, now,
	)
	return mapConstraint(err)
}

func (r *announcementsRepo) Update(ctx context.Context, a domain.Announcement) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE announcements
		SET title = ?, description = ?, sector = ?, target_role = ?, published_at = ?, updated_at = ?
		WHERE id = ?`,
		a.Title, a.Description, a.Sector, a.TargetRole, a.PublishedAt.UTC(),
		time.Now().UTC(), a.ID,
	)
	if err != nil {
		return err
	}
	return errIfNoRows(res)
}

func (r *announcementsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM announcements WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return errIfNoRows(res)
}
