package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/gitporter/gitporter/internal/models"
)

func (d *Database) FindNamespaceByFullPath(ctx context.Context, fullPath string) (*models.Namespace, error) {
	var ns models.Namespace
	err := d.db.WithContext(ctx).Where("full_path = ?", fullPath).First(&ns).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find namespace: %w", err)
	}
	return &ns, nil
}

// PersonalNamespace returns the user's own namespace, created alongside the
// account by EnsureUser.
func (d *Database) PersonalNamespace(ctx context.Context, userID int64) (*models.Namespace, error) {
	var ns models.Namespace
	err := d.db.WithContext(ctx).
		Where("owner_id = ? AND kind = ?", userID, models.NamespaceKindUser).
		First(&ns).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find personal namespace: %w", err)
	}
	return &ns, nil
}

// CreateGroup creates a top-level group namespace owned by ownerID. A path
// collision surfaces as ErrDuplicate; the caller decides how to report it.
func (d *Database) CreateGroup(ctx context.Context, path string, ownerID int64) (*models.Namespace, error) {
	ns := &models.Namespace{
		Name:     path,
		Path:     path,
		FullPath: path,
		Kind:     models.NamespaceKindGroup,
		OwnerID:  ownerID,
	}
	if err := ns.Validate(); err != nil {
		return nil, err
	}
	if err := d.db.WithContext(ctx).Create(ns).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, fmt.Errorf("namespace %q: %w", path, ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	return ns, nil
}

func (d *Database) GetNamespace(ctx context.Context, id int64) (*models.Namespace, error) {
	var ns models.Namespace
	err := d.db.WithContext(ctx).First(&ns, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get namespace: %w", err)
	}
	return &ns, nil
}
