package user

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/frahmantamala/herasat/internal"
	"github.com/frahmantamala/herasat/internal/core/common/clock"
	"github.com/frahmantamala/herasat/internal/core/common/validation"
	userDatamodel "github.com/frahmantamala/herasat/internal/core/datamodel/user"
	"github.com/frahmantamala/herasat/internal/core/events"
	"github.com/frahmantamala/herasat/internal/persistence"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type RepositoryAPI interface {
	List(ctx context.Context) ([]*userDatamodel.User, error)
	Count(ctx context.Context) (int64, error)
	// GetByID and GetByUsername return nil, nil when no row matches.
	GetByID(ctx context.Context, id string) (*userDatamodel.User, error)
	GetByUsername(ctx context.Context, username string) (*userDatamodel.User, error)
	// Create inserts the user and its role grants in one transaction.
	Create(ctx context.Context, u *userDatamodel.User, roles []*userDatamodel.UserRole) error
	Update(ctx context.Context, u *userDatamodel.User) error
	ReplaceRoles(ctx context.Context, userID string, roles []*userDatamodel.UserRole) error
	// Delete removes the user and its role grants.
	Delete(ctx context.Context, id string) (bool, error)
	Roles(ctx context.Context, userID string) ([]string, error)
	RolesByUser(ctx context.Context) (map[string][]string, error)
}

type Service struct {
	repo       RepositoryAPI
	persister  persistence.Persister
	publisher  events.Publisher
	logger     *slog.Logger
	now        clock.Func
	bcryptCost int

	dummyOnce sync.Once
	dummyHash []byte
}

func NewService(repo RepositoryAPI, persister persistence.Persister, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		persister:  persister,
		publisher:  publisher,
		logger:     logger,
		now:        clock.UTC,
		bcryptCost: bcrypt.DefaultCost,
	}
}

func (s *Service) WithClock(now clock.Func) *Service {
	s.now = clock.Or(now)
	return s
}

func (s *Service) WithBCryptCost(cost int) *Service {
	if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
		s.bcryptCost = cost
	}
	return s
}

func (s *Service) List(ctx context.Context) ([]*User, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, err
	}
	roles, err := s.repo.RolesByUser(ctx)
	if err != nil {
		s.logger.Error("failed to list user roles", "error", err)
		return nil, err
	}

	users := make([]*User, 0, len(rows))
	for _, row := range rows {
		users = append(users, FromDataModelWithRoles(row, roles[row.ID]))
	}
	return users, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	return s.withRoles(ctx, row)
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*User, error) {
	row, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	return s.withRoles(ctx, row)
}

func (s *Service) Roles(ctx context.Context, userID string) ([]string, error) {
	roles, err := s.repo.Roles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}
	return roles, nil
}

func (s *Service) withRoles(ctx context.Context, row *userDatamodel.User) (*User, error) {
	roles, err := s.Roles(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	return FromDataModelWithRoles(row, roles), nil
}

// Create adds a login principal and returns its id. A taken username fails
// with a DuplicateUsername conflict and leaves the existing user untouched.
func (s *Service) Create(ctx context.Context, dto CreateUserDTO, actorID string) (string, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Warn("user validation failed", "error", err, "username", dto.Username)
		return "", err
	}

	hash, err := s.hashPassword(dto.Password)
	if err != nil {
		return "", internal.NewInternalError("failed to hash password", err)
	}

	now := s.now()
	row := &userDatamodel.User{
		ID:                 uuid.NewString(),
		Username:           dto.Username,
		PasswordHash:       hash,
		FullName:           dto.FullName,
		MustChangePassword: dto.MustChangePassword,
		CreatedAt:          now,
	}

	if err := s.repo.Create(ctx, row, s.roleRows(row.ID, dto.Roles)); err != nil {
		if internal.IsConstraintViolation(err) {
			s.logger.Warn("username already taken", "username", dto.Username)
			return "", internal.ErrDuplicateUsername.WithCause(err)
		}
		s.logger.Error("failed to create user", "error", err, "username", dto.Username)
		return "", err
	}

	s.record(ctx, events.RecordCreated(actorID, events.EntityUser, row.ID, "Created user "+row.Username))
	if err := s.persister.Persist(ctx); err != nil {
		return "", err
	}

	s.logger.Info("user created", "user_id", row.ID, "username", row.Username)
	return row.ID, nil
}

// Update changes the full name and/or role set. A missing id is a no-op.
func (s *Service) Update(ctx context.Context, id string, dto UpdateUserDTO, actorID string) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if row == nil {
		s.logger.Debug("update of missing user ignored", "user_id", id)
		return nil
	}

	if dto.FullName != nil {
		row.FullName = *dto.FullName
		if err := s.repo.Update(ctx, row); err != nil {
			s.logger.Error("failed to update user", "error", err, "user_id", id)
			return err
		}
	}
	if dto.Roles != nil {
		if err := s.repo.ReplaceRoles(ctx, id, s.roleRows(id, dto.Roles)); err != nil {
			s.logger.Error("failed to replace user roles", "error", err, "user_id", id)
			return err
		}
	}

	s.record(ctx, events.RecordUpdated(actorID, events.EntityUser, id, "Updated user "+row.Username))
	return s.persister.Persist(ctx)
}

// ChangePassword replaces the stored hash and clears the rotation flag.
// A missing id is a no-op.
func (s *Service) ChangePassword(ctx context.Context, id, newPassword, actorID string) error {
	if err := validation.ValidatePassword(newPassword); err != nil {
		return err
	}

	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if row == nil {
		return nil
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}
	row.PasswordHash = hash
	row.MustChangePassword = false
	if err := s.repo.Update(ctx, row); err != nil {
		s.logger.Error("failed to change password", "error", err, "user_id", id)
		return err
	}

	s.record(ctx, events.NewRecordEvent(events.EventTypePasswordChanged, actorID, events.EntityUser, id, "Changed password for "+row.Username))
	return s.persister.Persist(ctx)
}

// Delete removes a user and its role grants. Users cannot delete
// themselves.
func (s *Service) Delete(ctx context.Context, id, actorID string) (bool, error) {
	if actorID != "" && actorID == id {
		return false, internal.ErrSelfDelete
	}

	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to load user: %w", err)
	}
	if row == nil {
		return false, nil
	}

	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.logger.Error("failed to delete user", "error", err, "user_id", id)
		return false, err
	}
	if !removed {
		return false, nil
	}

	s.record(ctx, events.RecordDeleted(actorID, events.EntityUser, id, "Deleted user "+row.Username))
	if err := s.persister.Persist(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// Authenticate returns the user with its roles when the password matches,
// and nil otherwise. Only successful logins are audited.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	row, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if row == nil {
		// keep the miss as slow as a wrong password
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		return nil, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)); err != nil {
		return nil, nil
	}

	u, err := s.withRoles(ctx, row)
	if err != nil {
		return nil, err
	}

	s.record(ctx, events.NewRecordEvent(events.EventTypeLogin, u.ID, events.EntityAuth, u.ID, u.Username+" logged in"))
	if err := s.persister.Persist(ctx); err != nil {
		s.logger.Warn("failed to persist login audit", "error", err, "user_id", u.ID)
	}
	return u, nil
}

// EnsureDefaultAdmin returns a seeder that creates the bootstrap
// administrator when no user exists yet.
func (s *Service) EnsureDefaultAdmin(seed internal.AdminSeed) persistence.Seeder {
	return persistence.SeederFunc(func(ctx context.Context) error {
		n, err := s.repo.Count(ctx)
		if err != nil {
			return fmt.Errorf("failed to count users: %w", err)
		}
		if n > 0 {
			return nil
		}

		id, err := s.Create(ctx, CreateUserDTO{
			Username:           seed.Username,
			Password:           seed.Password,
			FullName:           seed.FullName,
			Roles:              []string{RoleAdmin},
			MustChangePassword: true,
		}, "")
		if err != nil {
			return fmt.Errorf("failed to seed default admin: %w", err)
		}
		s.logger.Warn("default administrator created; change its password",
			"user_id", id, "username", seed.Username)
		return nil
	})
}

func (s *Service) roleRows(userID string, roles []string) []*userDatamodel.UserRole {
	if len(roles) == 0 {
		roles = []string{RoleUser}
	}
	now := s.now()
	out := make([]*userDatamodel.UserRole, 0, len(roles))
	seen := make([]string, 0, len(roles))
	for _, r := range roles {
		if slices.Contains(seen, r) {
			continue
		}
		seen = append(seen, r)
		out = append(out, &userDatamodel.UserRole{
			ID:        uuid.NewString(),
			UserID:    userID,
			Role:      r,
			CreatedAt: now,
		})
	}
	return out
}

func (s *Service) record(ctx context.Context, ev *events.RecordEvent) {
	if ev.ActorID == "" || s.publisher == nil {
		return
	}
	if err := s.publisher.PublishSync(ctx, ev); err != nil {
		s.logger.Warn("audit publish failed", "error", err, "action", ev.Action, "entity_id", ev.EntityID)
	}
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-password"), s.bcryptCost)
	})
	return s.dummyHash
}
