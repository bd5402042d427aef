package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SINTT/TODO/internal/domain"
	"github.com/SINTT/TODO/internal/logger"
	"github.com/SINTT/TODO/internal/policy"

	"golang.org/x/crypto/bcrypt"
)

const maxNicknameLen = 64

type RegisterInput struct {
	Nickname   string
	Credential string
	FirstName  string
	LastName   string
	Patronymic string
}

// IdentityService owns user accounts and credential checks.
type IdentityService struct {
	users      UserStore
	timeout    time.Duration
	bcryptCost int
}

func NewIdentityService(users UserStore, timeout time.Duration, bcryptCost int) *IdentityService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &IdentityService{
		users:      users,
		timeout:    timeout,
		bcryptCost: bcryptCost,
	}
}

// Register creates an account with role user.
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Nickname = strings.TrimSpace(in.Nickname)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Patronymic = strings.TrimSpace(in.Patronymic)

	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	hash, err := runCtx(ctx, func() ([]byte, error) {
		return bcrypt.GenerateFromPassword([]byte(in.Credential), s.bcryptCost)
	})
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, fmt.Errorf("%w: credential is too long", domain.ErrValidation)
	}
	if err != nil {
		return nil, classify(err)
	}

	u := &domain.User{
		Nickname:     in.Nickname,
		PasswordHash: string(hash),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Patronymic:   in.Patronymic,
		Role:         domain.RoleUser,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, classify(err)
	}

	logger.WithContext(ctx).Info("user registered", "nickname", u.Nickname)
	return u, nil
}

func validateRegistration(in RegisterInput) error {
	switch {
	case in.Nickname == "":
		return fmt.Errorf("%w: nickname is required", domain.ErrValidation)
	case len(in.Nickname) > maxNicknameLen:
		return fmt.Errorf("%w: nickname is longer than %d bytes", domain.ErrValidation, maxNicknameLen)
	case strings.ContainsAny(in.Nickname, " \t\r\n"):
		return fmt.Errorf("%w: nickname must not contain whitespace", domain.ErrValidation)
	case in.Credential == "":
		return fmt.Errorf("%w: credential is required", domain.ErrValidation)
	case in.FirstName == "":
		return fmt.Errorf("%w: first name is required", domain.ErrValidation)
	case in.LastName == "":
		return fmt.Errorf("%w: last name is required", domain.ErrValidation)
	case in.Patronymic == "":
		return fmt.Errorf("%w: patronymic is required", domain.ErrValidation)
	}
	return nil
}

// Authenticate returns the user when credential matches the stored hash.
func (s *IdentityService) Authenticate(ctx context.Context, nickname, credential string) (*domain.User, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	u, err := s.users.GetByNickname(ctx, strings.TrimSpace(nickname))
	if err != nil {
		authAttempts.WithLabelValues(domain.Code(classify(err))).Inc()
		return nil, classify(err)
	}

	_, err = runCtx(ctx, func() (struct{}, error) {
		return struct{}{}, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(credential))
	})
	switch {
	case err == nil:
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword), errors.Is(err, bcrypt.ErrHashTooShort):
		authAttempts.WithLabelValues("InvalidCredential").Inc()
		return nil, fmt.Errorf("user %q: %w", u.Nickname, domain.ErrInvalidCredential)
	default:
		authAttempts.WithLabelValues(domain.Code(classify(err))).Inc()
		return nil, classify(err)
	}

	authAttempts.WithLabelValues("ok").Inc()
	return u, nil
}

func (s *IdentityService) GetUser(ctx context.Context, nickname string) (*domain.User, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	u, err := s.users.GetByNickname(ctx, nickname)
	if err != nil {
		return nil, classify(err)
	}
	return u, nil
}

// ListUsers returns every user in registration order, leaving out
// excluding when it is not empty.
func (s *IdentityService) ListUsers(ctx context.Context, excluding string) ([]*domain.User, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, classify(err)
	}
	if excluding == "" {
		return users, nil
	}

	out := users[:0]
	for _, u := range users {
		if u.Nickname != excluding {
			out = append(out, u)
		}
	}
	return out, nil
}

// UpdateRole sets the role of nickname. Only admins may do it, and never
// for their own account. Setting the current role again is a no-op.
func (s *IdentityService) UpdateRole(ctx context.Context, actor domain.Actor, nickname string, role domain.Role) error {
	role, err := domain.ParseRole(string(role))
	if err != nil {
		return err
	}
	if !policy.Can(actor.Role, policy.ActionUpdateUserRole, policy.Context{
		ActorNickname:    actor.Nickname,
		ActorDisplayName: actor.DisplayName,
		TargetNickname:   nickname,
	}) {
		return fmt.Errorf("update role of %q: %w", nickname, domain.ErrForbidden)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	u, err := s.users.GetByNickname(ctx, nickname)
	if err != nil {
		return classify(err)
	}
	if u.Role == role {
		return nil
	}
	if err := s.users.UpdateRole(ctx, nickname, role); err != nil {
		return classify(err)
	}

	logger.WithContext(ctx).Info("user role updated", "nickname", nickname, "from", u.Role, "to", role, "by", actor.Nickname)
	return nil
}

// DeleteUser removes an account. Tasks created by or assigned to it keep
// their copied names.
func (s *IdentityService) DeleteUser(ctx context.Context, actor domain.Actor, nickname string) error {
	if !policy.Can(actor.Role, policy.ActionDeleteOwnAccount, policy.Context{
		ActorNickname:    actor.Nickname,
		ActorDisplayName: actor.DisplayName,
		TargetNickname:   nickname,
	}) {
		return fmt.Errorf("delete account %q: %w", nickname, domain.ErrForbidden)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.users.Delete(ctx, nickname); err != nil {
		return classify(err)
	}

	logger.WithContext(ctx).Info("user deleted", "nickname", nickname)
	return nil
}
