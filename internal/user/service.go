// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/foxmentors/portal/internal/auth"
	"github.com/foxmentors/portal/internal/booking"
	"github.com/foxmentors/portal/internal/core"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toUserInfo(u), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}

	return toUserInfo(u), nil
}

// CreateStudent is the self-registration path. The role is fixed.
func (s *Service) CreateStudent(
	ctx context.Context,
	email, passwordHash, name string,
) (*auth.UserInfo, error) {
	u, err := s.create(ctx, email, passwordHash, name, core.RoleStudent)
	if err != nil {
		return nil, err
	}

	return toUserInfo(u), nil
}

// CreateMentor registers a mentor on behalf of an admin.
func (s *Service) CreateMentor(
	ctx context.Context,
	req CreateMentorRequest,
) (*User, error) {
	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.create(ctx, req.Email, passwordHash, strings.TrimSpace(req.Name), core.RoleMentor)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "mentor created", "user_id", u.ID)
	return u, nil
}

func (s *Service) create(
	ctx context.Context,
	email, passwordHash, name string,
	role core.Role,
) (*User, error) {
	u := &User{
		ID:           uuid.New().String(),
		Email:        normalizeEmail(email),
		PasswordHash: passwordHash,
		Name:         name,
		Role:         string(role),
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

func (s *Service) IncrementTokenVersion(
	ctx context.Context,
	userID string,
) error {
	return s.repo.IncrementTokenVersion(ctx, userID)
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	userID, passwordHash string,
) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) ListMentors(ctx context.Context) ([]User, error) {
	return s.repo.ListByRole(ctx, core.RoleMentor)
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, userID)
}

// LookupPerson resolves a user id for the booking workflow.
func (s *Service) LookupPerson(
	ctx context.Context,
	id string,
) (*booking.Person, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("lookup person: %w", core.ErrNotFound)
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("lookup person: %w", core.ErrNotFound)
		}
		return nil, err
	}

	return &booking.Person{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Role:  u.AccessRole(),
	}, nil
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         u.AccessRole(),
		TokenVersion: u.TokenVersion,
		CreatedAt:    u.CreatedAt,
	}
}

var (
	_ auth.UserProvider  = (*Service)(nil)
	_ booking.Directory = (*Service)(nil)
)
