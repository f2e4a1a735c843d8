package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/charlesng35/comunitree/internal/models"
	"github.com/charlesng35/comunitree/internal/store"
	"github.com/charlesng35/comunitree/pkg/crypto"
	apperrors "github.com/charlesng35/comunitree/pkg/errors"
	"github.com/charlesng35/comunitree/pkg/logger"
	"github.com/charlesng35/comunitree/pkg/metrics"
)

const minPasswordLength = 8

// RegisterInput captures a new account.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

// AccountService registers and authenticates users. Every registered user receives a friend
// group in the same transaction as the account row.
type AccountService struct {
	store      *store.Store
	audit      *AuditService
	bcryptCost int
}

// AccountOption customises an AccountService.
type AccountOption func(*AccountService)

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) AccountOption {
	return func(s *AccountService) {
		s.bcryptCost = cost
	}
}

// NewAccountService constructs an AccountService instance.
func NewAccountService(st *store.Store, audit *AuditService, opts ...AccountOption) (*AccountService, error) {
	if st == nil {
		return nil, errors.New("account service: store is required")
	}
	svc := &AccountService{store: st, audit: audit}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register creates the user and their friend group.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (user *models.User, err error) {
	ctx = ensureContext(ctx)
	defer track("account.register", &err)

	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" || email == "" {
		return nil, apperrors.NewBadRequest("username and email are required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hash, err := crypto.HashPasswordWithCost(input.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("account service: hash password: %w", err)
	}

	user = &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(input.DisplayName),
		IsActive:     true,
	}

	var group *models.Community
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			if isUniqueConstraintError(err) {
				return ErrUsernameTaken
			}
			return err
		}
		created, err := createFriendGroup(ctx, tx, user.ID)
		group = created
		return err
	})
	if err != nil {
		return nil, serviceError("account service: register", err)
	}

	logger.WithModule("account").Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("friend_group_id", group.ID),
	)
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   actor(user.ID),
		Action:   "account.register",
		Resource: user.ID,
		Metadata: map[string]any{"friend_group_id": group.ID},
	})
	return user, nil
}

// Authenticate returns the active user matching username (or email) and password.
func (s *AccountService) Authenticate(ctx context.Context, identifier, password string) (*models.User, error) {
	ctx = ensureContext(ctx)

	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	user, err := s.store.FindUserByUsername(ctx, identifier)
	if isNotFound(err) && strings.Contains(identifier, "@") {
		user, err = s.store.FindActiveUserByEmail(ctx, identifier)
	}
	if isNotFound(err) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("account service: load user: %w", err)
	}

	if !user.IsActive || !crypto.VerifyPassword(user.PasswordHash, password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	return user, nil
}

// GetUser loads an active user by id.
func (s *AccountService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.store.FindUser(ctx, userID)
	if isNotFound(err) || (err == nil && !user.IsActive) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("account service: load user: %w", err)
	}
	return user, nil
}
