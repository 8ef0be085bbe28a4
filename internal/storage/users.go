package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/gitporter/gitporter/internal/models"
)

func (d *Database) CreateUser(ctx context.Context, user *models.User) error {
	if err := d.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("username %q: %w", user.Username, ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (d *Database) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := d.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (d *Database) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := d.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return &user, nil
}

// EnsureUser finds a user by username, provisioning both the account and its
// personal namespace on first sight.
func (d *Database) EnsureUser(ctx context.Context, username string) (*models.User, error) {
	existing, err := d.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	user := &models.User{Username: username}
	err = d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		personal := &models.Namespace{
			Name:     username,
			Path:     username,
			FullPath: username,
			Kind:     models.NamespaceKindUser,
			OwnerID:  user.ID,
		}
		if err := personal.Validate(); err != nil {
			return err
		}
		return tx.Create(personal).Error
	})
	if err != nil {
		if isDuplicateKey(err) {
			// Lost a provisioning race; the winner's row is what we want.
			return d.GetUserByUsername(ctx, username)
		}
		return nil, fmt.Errorf("failed to provision user: %w", err)
	}
	return user, nil
}
