package sqlite

import (
	"context"
	"time"

	"github.com/pointerhq/portal/internal/portal/domain"
	"github.com/pointerhq/portal/internal/portal/store"
)

type usersRepo struct {
	q queryer
}

const userColumns = `id, name, matricula, email, password_hash, cpf, job_title, sector, profile, active, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Matricula,
		&u.Email,
		&u.PasswordHash,
		&u.CPF,
		&u.JobTitle,
		&u.Sector,
		&u.Profile,
		&u.Active,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (id, name, matricula, email, password_hash, cpf, job_title, sector, profile, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Matricula, u.Email, u.PasswordHash, u.CPF,
		u.JobTitle, u.Sector, u.Profile, u.Active, now, now,
	)
	return mapConstraint(err)
}

func (r *usersRepo) UpdateUser(ctx context.Context, u domain.User) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users
		SET name = ?, cpf = ?, job_title = ?, sector = ?, profile = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		u.Name, u.CPF, u.JobTitle, u.Sector, u.Profile, u.Active,
		time.Now().UTC(), u.ID,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return errIfNoRows(res)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	return errIfNoRows(res)
}

func (r *usersRepo) UpdateStatus(ctx context.Context, userID string, active bool) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users SET active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	return errIfNoRows(res)
}

func (r *usersRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (r *usersRepo) List(ctx context.Context, f store.UserFilter, p store.Page) ([]domain.User, int64, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if f.Sector != "" {
		where += ` AND sector = ?`
		args = append(args, f.Sector)
	}
	if f.Profile != "" {
		where += ` AND profile = ?`
		args = append(args, f.Profile)
	}
	if f.Active != nil {
		where += ` AND active = ?`
		args = append(args, *f.Active)
	}

	var total int64
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	pageArgs := append(args, p.Size, p.Number*p.Size)
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users`+where+` ORDER BY id ASC LIMIT ? OFFSET ?`,
		pageArgs...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return users, total, nil
}
