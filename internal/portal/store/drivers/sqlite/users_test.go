package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pointerhq/portal/internal/portal/domain"
	"github.com/pointerhq/portal/internal/portal/store"
	"github.com/pointerhq/portal/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func testUser(n int) domain.User {
	return domain.User{
		ID:           idx.New().String(),
		Name:         fmt.Sprintf("User %d", n),
		Matricula:    fmt.Sprintf("%06d", n),
		Email:        fmt.Sprintf("user%d@example.com", n),
		PasswordHash: "argon2:dummy",
		CPF:          fmt.Sprintf("%011d", n),
		JobTitle:     "Desenvolvedor",
		Sector:       "TI",
		Profile:      domain.ProfileUser,
		Active:       true,
	}
}

func TestUsersCRUD(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	u := testUser(1)
	require.NoError(t, s.Users().CreateUser(ctx, u))

	t.Run("get by id", func(t *testing.T) {
		got, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, u.Email, got.Email)
		require.Equal(t, u.Matricula, got.Matricula)
		require.True(t, got.Active)
		require.False(t, got.CreatedAt.IsZero())
	})

	t.Run("get by email", func(t *testing.T) {
		got, err := s.Users().GetUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
	})

	t.Run("missing user maps to ErrNotFound", func(t *testing.T) {
		_, err := s.Users().GetUserByEmail(ctx, "nobody@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("update profile columns", func(t *testing.T) {
		u2 := u
		u2.Name = "Renamed"
		u2.Sector = "Recursos Humanos"
		u2.Profile = domain.ProfileAdmin
		require.NoError(t, s.Users().UpdateUser(ctx, u2))

		got, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, "Renamed", got.Name)
		require.Equal(t, "Recursos Humanos", got.Sector)
		require.Equal(t, domain.ProfileAdmin, got.Profile)
	})

	t.Run("toggle status", func(t *testing.T) {
		require.NoError(t, s.Users().UpdateStatus(ctx, u.ID, false))
		got, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.False(t, got.Active)
	})

	t.Run("update password hash", func(t *testing.T) {
		require.NoError(t, s.Users().UpdatePasswordHash(ctx, u.ID, "argon2:new"))
		got, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, "argon2:new", got.PasswordHash)
	})

	t.Run("update on missing id reports not found", func(t *testing.T) {
		err := s.Users().UpdateStatus(ctx, idx.New().String(), true)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestUsersUniqueConstraints(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	u := testUser(1)
	require.NoError(t, s.Users().CreateUser(ctx, u))

	t.Run("duplicate email", func(t *testing.T) {
		dup := testUser(2)
		dup.Email = u.Email
		require.ErrorIs(t, s.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("duplicate cpf", func(t *testing.T) {
		dup := testUser(3)
		dup.CPF = u.CPF
		require.ErrorIs(t, s.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("duplicate matricula", func(t *testing.T) {
		dup := testUser(4)
		dup.Matricula = u.Matricula
		err := s.Users().CreateUser(ctx, dup)
		require.ErrorIs(t, err, store.ErrMatriculaTaken)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("duplicate email is not a matricula conflict", func(t *testing.T) {
		dup := testUser(5)
		dup.Email = u.Email
		err := s.Users().CreateUser(ctx, dup)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
		require.NotErrorIs(t, err, store.ErrMatriculaTaken)
	})
}

func TestUsersListFilterAndPaging(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	for i := 1; i <= 12; i++ {
		u := testUser(i)
		if i%3 == 0 {
			u.Sector = "Recursos Humanos"
		}
		if i%4 == 0 {
			u.Profile = domain.ProfileManager
		}
		if i > 10 {
			u.Active = false
		}
		require.NoError(t, s.Users().CreateUser(ctx, u))
	}

	t.Run("no filter returns everyone paged", func(t *testing.T) {
		users, total, err := s.Users().List(ctx, store.UserFilter{}, store.Page{Number: 0, Size: 10})
		require.NoError(t, err)
		require.EqualValues(t, 12, total)
		require.Len(t, users, 10)

		users, total, err = s.Users().List(ctx, store.UserFilter{}, store.Page{Number: 1, Size: 10})
		require.NoError(t, err)
		require.EqualValues(t, 12, total)
		require.Len(t, users, 2)
	})

	t.Run("filter by sector", func(t *testing.T) {
		users, total, err := s.Users().List(ctx,
			store.UserFilter{Sector: "Recursos Humanos"},
			store.Page{Number: 0, Size: 10})
		require.NoError(t, err)
		require.EqualValues(t, 4, total)
		for _, u := range users {
			require.Equal(t, "Recursos Humanos", u.Sector)
		}
	})

	t.Run("filter by profile and status", func(t *testing.T) {
		active := true
		users, total, err := s.Users().List(ctx,
			store.UserFilter{Profile: domain.ProfileManager, Active: &active},
			store.Page{Number: 0, Size: 10})
		require.NoError(t, err)
		require.EqualValues(t, 2, total) // users 4 and 8; 12 is inactive
		for _, u := range users {
			require.Equal(t, domain.ProfileManager, u.Profile)
			require.True(t, u.Active)
		}
	})

	t.Run("count", func(t *testing.T) {
		n, err := s.Users().Count(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 12, n)
	})
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	u := testUser(1)
	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, u); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	_, err = s.Users().GetUserByID(ctx, u.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAnnouncementsAndReceipts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	reader := testUser(1)
	require.NoError(t, s.Users().CreateUser(ctx, reader))

	old := domain.Announcement{
		ID:          idx.New().String(),
		Title:       "Festa junina",
		Description: "Confraternização no refeitório.",
		Sector:      "Recursos Humanos",
		TargetRole:  "user",
		PublishedAt: time.Now().Add(-48 * time.Hour),
	}
	recent := domain.Announcement{
		ID:          idx.New().String(),
		Title:       "Nova política de home office",
		Description: "Detalhes no anexo.",
		Sector:      "Recursos Humanos",
		TargetRole:  "user",
		PublishedAt: time.Now(),
	}
	require.NoError(t, s.Announcements().Create(ctx, old))
	require.NoError(t, s.Announcements().Create(ctx, recent))

	t.Run("list newest first", func(t *testing.T) {
		all, err := s.Announcements().ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		require.Equal(t, recent.ID, all[0].ID)
		require.Equal(t, old.ID, all[1].ID)
	})

	t.Run("update", func(t *testing.T) {
		upd := recent
		upd.Title = "Política de home office (v2)"
		require.NoError(t, s.Announcements().Update(ctx, upd))
		got, err := s.Announcements().GetByID(ctx, recent.ID)
		require.NoError(t, err)
		require.Equal(t, upd.Title, got.Title)
	})

	t.Run("receipt is unique per user and announcement", func(t *testing.T) {
		rr := domain.ReadReceipt{
			ID:             idx.New().String(),
			UserID:         reader.ID,
			AnnouncementID: recent.ID,
			ReadAt:         time.Now(),
		}
		require.NoError(t, s.ReadReceipts().Create(ctx, rr))

		dup := rr
		dup.ID = idx.New().String()
		require.ErrorIs(t, s.ReadReceipts().Create(ctx, dup), store.ErrAlreadyExists)

		ok, err := s.ReadReceipts().Exists(ctx, reader.ID, recent.ID)
		require.NoError(t, err)
		require.True(t, ok)

		list, err := s.ReadReceipts().ListByAnnouncement(ctx, recent.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, reader.ID, list[0].UserID)
	})

	t.Run("delete cascades receipts", func(t *testing.T) {
		require.NoError(t, s.Announcements().Delete(ctx, recent.ID))

		_, err := s.Announcements().GetByID(ctx, recent.ID)
		require.ErrorIs(t, err, store.ErrNotFound)

		ok, err := s.ReadReceipts().Exists(ctx, reader.ID, recent.ID)
		require.NoError(t, err)
		require.False(t, ok)
	})
}
