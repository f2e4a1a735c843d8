package store

import (
	"context"
	"strings"

	"github.com/charlesng35/comunitree/internal/models"
)

// FindUser loads a user by id.
func (s *Store) FindUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).Where("id = ?", id).Take(&user).Error; err != nil {
		return nil, translate("find user", err)
	}
	return &user, nil
}

// FindUserByUsername loads a user by username.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).Where("username = ?", strings.TrimSpace(username)).Take(&user).Error; err != nil {
		return nil, translate("find user by username", err)
	}
	return &user, nil
}

// FindActiveUserByEmail loads an active user by case-insensitive email.
func (s *Store) FindActiveUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.conn(ctx).
		Where("LOWER(email) = ? AND is_active = ?", strings.ToLower(strings.TrimSpace(email)), true).
		Take(&user).Error
	if err != nil {
		return nil, translate("find user by email", err)
	}
	return &user, nil
}

// FindUsers loads the given users keyed by id.
func (s *Store) FindUsers(ctx context.Context, ids []string) (map[string]models.User, error) {
	out := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := s.conn(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, translate("find users", err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// CreateUser inserts a user row.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return translate("create user", s.conn(ctx).Create(user).Error)
}
