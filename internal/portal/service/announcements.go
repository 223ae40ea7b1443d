package service

import (
	"context"
	"errors"
	"time"

	"github.com/pointerhq/portal/internal/portal/domain"
	"github.com/pointerhq/portal/internal/portal/store"
	"github.com/pointerhq/portal/pkg/idx"
)

var (
	ErrAnnouncementNotFound = errors.New("announcement not found")
)

type AnnouncementInput struct {
	Title       string
	Description string
	Sector      string
	TargetRole  string
	PublishedAt time.Time
}

// Reader is one entry of an announcement's read list.
type Reader struct {
	UserID string
	Name   string
	Email  string
	ReadAt time.Time
}

type AnnouncementService struct {
	Store store.Store
}

func (s *AnnouncementService) ListAll(ctx context.Context) ([]domain.Announcement, error) {
	return s.Store.Announcements().ListAll(ctx)
}

func (s *AnnouncementService) GetByID(ctx context.Context, id string) (domain.Announcement, error) {
	a, err := s.Store.Announcements().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Announcement{}, ErrAnnouncementNotFound
		}
		return domain.Announcement{}, err
	}
	return a, nil
}

func (s *AnnouncementService) Create(ctx context.Context, in AnnouncementInput) (domain.Announcement, error) {
	publishedAt := in.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = time.Now().UTC()
	}

	a := domain.Announcement{
		ID:          idx.New().String(),
		Title:       in.Title,
		Description: in.Description,
		Sector:      in.Sector,
		TargetRole:  in.TargetRole,
		PublishedAt: publishedAt,
	}
	if err := s.Store.Announcements().Create(ctx, a); err != nil {
		return domain.Announcement{}, err
	}
	return a, nil
}

func (s *AnnouncementService) Update(ctx context.Context, id string, in AnnouncementInput) (domain.Announcement, error) {
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.Announcement{}, err
	}

	a.Title = in.Title
	a.Description = in.Description
	a.Sector = in.Sector
	a.TargetRole = in.TargetRole
	if !in.PublishedAt.IsZero() {
		a.PublishedAt = in.PublishedAt
	}

	if err := s.Store.Announcements().Update(ctx, a); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Announcement{}, ErrAnnouncementNotFound
		}
		return domain.Announcement{}, err
	}
	return a, nil
}

func (s *AnnouncementService) Delete(ctx context.Context, id string) error {
	if err := s.Store.Announcements().Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAnnouncementNotFound
		}
		return err
	}
	return nil
}

// MarkRead records that the user behind userEmail read the announcement.
// Marking twice is a no-op, not an error.
func (s *AnnouncementService) MarkRead(ctx context.Context, announcementID, userEmail string) error {
	// Verify the parent exists so a receipt never points at nothing.
	if _, err := s.GetByID(ctx, announcementID); err != nil {
		return err
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, userEmail)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	userID := user.ID

	exists, err := s.Store.ReadReceipts().Exists(ctx, userID, announcementID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = s.Store.ReadReceipts().Create(ctx, domain.ReadReceipt{
		ID:             idx.New().String(),
		UserID:         userID,
		AnnouncementID: announcementID,
		ReadAt:         time.Now().UTC(),
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		// Lost a race against another mark from the same user.
		return nil
	}
	return err
}

// ListReaders returns who read the announcement and when, oldest first.
func (s *AnnouncementService) ListReaders(ctx context.Context, announcementID string) ([]Reader, error) {
	if _, err := s.GetByID(ctx, announcementID); err != nil {
		return nil, err
	}

	receipts, err := s.Store.ReadReceipts().ListByAnnouncement(ctx, announcementID)
	if err != nil {
		return nil, err
	}

	readers := make([]Reader, 0, len(receipts))
	for _, r := range receipts {
		reader := Reader{UserID: r.UserID, ReadAt: r.ReadAt}
		if u, err := s.Store.Users().GetUserByID(ctx, r.UserID); err == nil {
			reader.Name = u.Name
			reader.Email = u.Email
		}
		readers = append(readers, reader)
	}
	return readers, nil
}
