package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/pointerhq/portal/internal/portal/domain"
	"github.com/pointerhq/portal/internal/portal/idp"
	"github.com/pointerhq/portal/internal/portal/mail"
	"github.com/pointerhq/portal/internal/portal/store"
	"github.com/pointerhq/portal/pkg/cryptox"
	"github.com/pointerhq/portal/pkg/idx"
	"github.com/pointerhq/portal/pkg/slogx"
)

var (
	ErrUserNotFound = errors.New("user not found")
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// matriculaRetries bounds the regenerate-and-retry loop when a count-derived
// matricula collides under concurrent creates.
const matriculaRetries = 3

// CreateUserInput carries everything the create workflow needs. Password is
// optional; when empty one is generated and mailed to the user.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	CPF      string
	JobTitle string
	Sector   string
	Profile  string
}

// UpdateUserInput mutates an existing user, keyed by email.
type UpdateUserInput struct {
	Email    string
	Name     string
	CPF      string
	JobTitle string
	Sector   string
	Profile  string
	Active   bool
}

// UserPage is one page of a filtered listing.
type UserPage struct {
	Users []domain.User
	Total int64
	Page  int
	Size  int
}

// UserService runs the provisioning workflow: every write touches the local
// store first and then synchronizes the identity provider. The two stores are
// not transactionally coupled; provider failures after a local commit surface
// as errors without rolling the local write back.
type UserService struct {
	Store     store.Store
	IDP       idp.Client
	Roles     RoleResolver
	Passwords PasswordPolicy
	Mail      mail.Sink
}

// Create provisions a user locally and in the identity provider.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (domain.User, error) {
	log := slogx.FromContext(ctx)

	// 1. Fail fast on invalid input before any I/O.
	if !emailPattern.MatchString(in.Email) {
		return domain.User{}, idp.ErrEmailInvalid
	}
	if in.Password != "" {
		if err := s.Passwords.Validate(in.Password); err != nil {
			return domain.User{}, err
		}
	}

	// 2. Reject already-registered emails, locally and remotely, before
	// persisting anything.
	if _, err := s.Store.Users().GetUserByEmail(ctx, in.Email); err == nil {
		return domain.User{}, idp.ErrAccountAlreadyExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	remote, err := s.IDP.FindByEmail(ctx, in.Email)
	if err != nil {
		return domain.User{}, err
	}
	if remote != nil {
		return domain.User{}, idp.ErrAccountAlreadyExists
	}

	// 3. Determine the effective password; generated ones are mailed to
	// the user before we continue.
	password := in.Password
	if password == "" {
		password, err = s.Passwords.Generate()
		if err != nil {
			return domain.User{}, err
		}
		if err := s.Mail.SendPassword(ctx, in.Email, in.Name, password); err != nil {
			log.Error("failed to send generated password",
				slog.String("email", in.Email),
				slog.Any("error", err),
			)
			return domain.User{}, err
		}
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           idx.New().String(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		CPF:          in.CPF,
		JobTitle:     in.JobTitle,
		Sector:       in.Sector,
		Profile:      normalizeProfile(in.Profile),
		Active:       true,
	}

	// 4. Persist with a count-derived matricula. The unique index is the
	// real guard; collisions under concurrent creates are retried with a
	// regenerated value.
	if err := s.persistWithMatricula(ctx, &user); err != nil {
		return domain.User{}, err
	}

	// 5. Create the remote account and set the credential explicitly.
	accountID, err := s.IDP.CreateAccount(ctx, user.Name, user.Email, password)
	if err != nil {
		log.Error("local user committed but remote account creation failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return domain.User{}, err
	}

	if err := s.IDP.SetPassword(ctx, accountID, password); err != nil {
		log.Error("remote account created but password set failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return domain.User{}, err
	}

	// 6. Resolve and assign realm roles.
	roles := s.Roles.Resolve(user.Sector, user.JobTitle, user.Profile)
	if err := s.IDP.AssignRoles(ctx, accountID, roles); err != nil {
		log.Error("remote account created but role assignment failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return domain.User{}, err
	}

	log.Info("user provisioned",
		slog.String("user_id", user.ID),
		slog.String("matricula", user.Matricula),
	)

	return user, nil
}

// persistWithMatricula inserts the user, retrying with a freshly derived
// matricula when its unique index reports a collision. Other uniqueness
// violations (email, cpf) are real conflicts and fail immediately.
func (s *UserService) persistWithMatricula(ctx context.Context, user *domain.User) error {
	var lastErr error
	for attempt := 0; attempt < matriculaRetries; attempt++ {
		err := s.Store.WithTx(ctx, func(tx store.Tx) error {
			count, err := tx.Users().Count(ctx)
			if err != nil {
				return err
			}
			user.Matricula = fmt.Sprintf("%06d", count+1+int64(attempt))
			return tx.Users().CreateUser(ctx, *user)
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrMatriculaTaken) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// List returns one page of users matching the optional filters.
func (s *UserService) List(ctx context.Context, f store.UserFilter, page, size int) (UserPage, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 10
	}

	users, total, err := s.Store.Users().List(ctx, f, store.Page{Number: page, Size: size})
	if err != nil {
		return UserPage{}, err
	}

	return UserPage{Users: users, Total: total, Page: page, Size: size}, nil
}

// ToggleStatus flips a user's active flag and mirrors it to the provider.
func (s *UserService) ToggleStatus(ctx context.Context, email string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}

	user.Active = !user.Active
	if err := s.Store.Users().UpdateStatus(ctx, user.ID, user.Active); err != nil {
		return domain.User{}, err
	}

	// Mirror the flag remotely. A user that was never provisioned remotely
	// is not an error.
	remote, err := s.IDP.FindByEmail(ctx, email)
	if err != nil {
		log.Error("status committed locally but remote lookup failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return domain.User{}, err
	}
	if remote != nil {
		if user.Active {
			err = s.IDP.Enable(ctx, remote.ID)
		} else {
			err = s.IDP.Disable(ctx, remote.ID)
		}
		if err != nil {
			log.Error("status committed locally but remote toggle failed",
				slog.String("user_id", user.ID),
				slog.Any("error", err),
			)
			return domain.User{}, err
		}
	}

	return user, nil
}

// UpdateWithSync applies profile changes locally and synchronizes the remote
// account when one exists.
func (s *UserService) UpdateWithSync(ctx context.Context, in UpdateUserInput) (domain.User, error) {
	log := slogx.FromContext(ctx)

	// 1. Apply the change locally.
	user, err := s.Store.Users().GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}

	user.Name = in.Name
	user.CPF = in.CPF
	user.JobTitle = in.JobTitle
	user.Sector = in.Sector
	user.Profile = normalizeProfile(in.Profile)
	user.Active = in.Active

	if err := s.Store.Users().UpdateUser(ctx, user); err != nil {
		return domain.User{}, err
	}

	// 2. A user that only exists locally is left alone remotely.
	remote, err := s.IDP.FindByEmail(ctx, user.Email)
	if err != nil {
		log.Error("update committed locally but remote lookup failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return domain.User{}, err
	}
	if remote == nil {
		log.Info("user has no remote account, skipping sync",
			slog.String("user_id", user.ID),
		)
		return user, nil
	}

	// 3. Update the remote profile.
	first, last := splitName(user.Name)
	if err := s.IDP.UpdateProfile(ctx, remote.ID, first, last, user.Email, user.Active); err != nil {
		log.Error("update committed locally but remote profile sync failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return domain.User{}, err
	}

	// 4. Remove-then-add the role set rather than diffing; it tolerates
	// drift and role sets are small.
	current := s.IDP.ListCurrentRoles(ctx, remote.ID)
	if len(current) > 0 {
		if err := s.IDP.RemoveRoles(ctx, remote.ID, current); err != nil {
			log.Error("update committed locally but role removal failed",
				slog.String("user_id", user.ID),
				slog.Any("error", err),
			)
			return domain.User{}, err
		}
	}

	desired := s.Roles.Resolve(user.Sector, user.JobTitle, user.Profile)
	if err := s.IDP.AssignRoles(ctx, remote.ID, desired); err != nil {
		log.Error("update committed locally but role assignment failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return domain.User{}, err
	}

	return user, nil
}

// ResetPassword generates a new password, mails it, and stores it locally and
// remotely. The caller never supplies the old one.
func (s *UserService) ResetPassword(ctx context.Context, email string) error {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	password, err := s.Passwords.Generate()
	if err != nil {
		return err
	}

	if err := s.Mail.SendPassword(ctx, user.Email, user.Name, password); err != nil {
		return err
	}

	return s.setPassword(ctx, user, password)
}

// UpdatePassword stores a caller-supplied password locally and remotely.
func (s *UserService) UpdatePassword(ctx context.Context, email, password string) error {
	if err := s.Passwords.Validate(password); err != nil {
		return err
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	return s.setPassword(ctx, user, password)
}

func (s *UserService) setPassword(ctx context.Context, user domain.User, password string) error {
	log := slogx.FromContext(ctx)

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return err
	}

	remote, err := s.IDP.FindByEmail(ctx, user.Email)
	if err != nil {
		log.Error("password committed locally but remote lookup failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return err
	}
	if remote == nil {
		return nil
	}

	if err := s.IDP.SetPassword(ctx, remote.ID, password); err != nil {
		log.Error("password committed locally but remote set failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return err
	}
	return nil
}

func normalizeProfile(profile string) string {
	switch strings.ToUpper(strings.TrimSpace(profile)) {
	case domain.ProfileAdmin:
		return domain.ProfileAdmin
	case domain.ProfileManager, "GESTOR":
		return domain.ProfileManager
	default:
		return domain.ProfileUser
	}
}

// splitName splits a full name into a first/last pair: the first
// whitespace-delimited token and the remainder joined by single spaces.
func splitName(name string) (first, last string) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}
