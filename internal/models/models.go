// Package models defines the domain entities for the import service.
package models

import (
	"errors"
	"strings"
	"time"
)

// ImportStatus tracks the lifecycle of the asynchronous repository copy.
type ImportStatus string

const (
	ImportStatusNone      ImportStatus = "none"
	ImportStatusScheduled ImportStatus = "scheduled"
	ImportStatusStarted   ImportStatus = "started"
	ImportStatusFinished  ImportStatus = "finished"
	ImportStatusFailed    ImportStatus = "failed"
)

// CanTransition reports whether moving from s to next is a legal status change.
// Terminal states (finished, failed) accept no further transitions, and none
// is itself terminal: it marks projects whose copy completed synchronously.
func (s ImportStatus) CanTransition(next ImportStatus) bool {
	switch s {
	case ImportStatusScheduled:
		return next == ImportStatusStarted || next == ImportStatusFailed
	case ImportStatusStarted:
		return next == ImportStatusFinished || next == ImportStatusFailed
	default:
		return false
	}
}

// Valid reports whether s is one of the known status values.
func (s ImportStatus) Valid() bool {
	switch s {
	case ImportStatusNone, ImportStatusScheduled, ImportStatusStarted, ImportStatusFinished, ImportStatusFailed:
		return true
	}
	return false
}

// NamespaceKind distinguishes personal namespaces from groups.
type NamespaceKind string

const (
	NamespaceKindUser  NamespaceKind = "user"
	NamespaceKindGroup NamespaceKind = "group"
)

// User is a local account that owns imports and namespaces.
type User struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Namespace is the destination grouping a project is created under. A user's
// personal namespace shares its path with the username; groups are created on
// demand during import.
type Namespace struct {
	ID        int64         `gorm:"primaryKey" json:"id"`
	Name      string        `gorm:"not null" json:"name"`
	Path      string        `gorm:"not null" json:"path"`
	FullPath  string        `gorm:"uniqueIndex;not null" json:"full_path"`
	Kind      NamespaceKind `gorm:"not null;default:group" json:"kind"`
	OwnerID   int64         `gorm:"index;not null" json:"owner_id"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

var (
	ErrNamespacePathRequired = errors.New("namespace path is required")
	ErrNamespacePathInvalid  = errors.New("namespace path may only contain letters, digits, '_', '-' and '.'")
)

// Validate normalizes and checks the namespace before persistence.
func (n *Namespace) Validate() error {
	n.Path = strings.TrimSpace(n.Path)
	n.FullPath = strings.TrimSpace(n.FullPath)
	if n.Path == "" {
		return ErrNamespacePathRequired
	}
	if n.FullPath == "" {
		n.FullPath = n.Path
	}
	if n.Name == "" {
		n.Name = n.Path
	}
	if !validPath(n.Path) {
		return ErrNamespacePathInvalid
	}
	return nil
}

// Project is the durable record of one imported repository. ImportType and
// ImportSource together identify the remote origin; the composite unique index
// with CreatorID closes the duplicate-submission race at the data layer.
type Project struct {
	ID           int64        `gorm:"primaryKey" json:"id"`
	Name         string       `gorm:"not null" json:"name"`
	Path         string       `gorm:"not null" json:"path"`
	NamespaceID  int64        `gorm:"index;not null" json:"namespace_id"`
	Namespace    *Namespace   `gorm:"foreignKey:NamespaceID" json:"namespace,omitempty"`
	CreatorID    int64        `gorm:"uniqueIndex:uq_projects_import_identity;not null" json:"creator_id"`
	ImportType   string       `gorm:"uniqueIndex:uq_projects_import_identity;not null" json:"import_type"`
	ImportSource string       `gorm:"uniqueIndex:uq_projects_import_identity;not null" json:"import_source"`
	ImportURL    string       `json:"-"`
	ImportStatus ImportStatus `gorm:"not null;default:none" json:"import_status"`
	ImportError  string       `json:"import_error,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

var (
	ErrProjectNameRequired   = errors.New("project name is required")
	ErrProjectPathRequired   = errors.New("project path is required")
	ErrProjectPathInvalid    = errors.New("project path may only contain letters, digits, '_', '-' and '.'")
	ErrImportTypeRequired    = errors.New("import type is required")
	ErrImportSourceRequired  = errors.New("import source is required")
	ErrImportStatusUnknown   = errors.New("unknown import status")
	ErrProjectCreatorMissing = errors.New("project creator is required")
)

// Validate normalizes and checks the project before persistence.
func (p *Project) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	p.Path = strings.TrimSpace(p.Path)
	p.ImportType = strings.TrimSpace(p.ImportType)
	p.ImportSource = strings.TrimSpace(p.ImportSource)

	if p.Name == "" {
		return ErrProjectNameRequired
	}
	if p.Path == "" {
		p.Path = Slugify(p.Name)
	}
	if !validPath(p.Path) {
		return ErrProjectPathInvalid
	}
	if p.ImportType == "" {
		return ErrImportTypeRequired
	}
	if p.ImportSource == "" {
		return ErrImportSourceRequired
	}
	if p.CreatorID == 0 {
		return ErrProjectCreatorMissing
	}
	if p.ImportStatus == "" {
		p.ImportStatus = ImportStatusNone
	}
	if !p.ImportStatus.Valid() {
		return ErrImportStatusUnknown
	}
	return nil
}

// MaskedImportURL returns the import URL with any embedded userinfo removed,
// safe for logs and API payloads.
func (p *Project) MaskedImportURL() string {
	if p.ImportURL == "" {
		return ""
	}
	at := strings.LastIndex(p.ImportURL, "@")
	scheme := strings.Index(p.ImportURL, "://")
	if at == -1 || scheme == -1 || at < scheme {
		return p.ImportURL
	}
	return p.ImportURL[:scheme+3] + "*****@" + p.ImportURL[at+1:]
}

// Slugify converts an arbitrary repository name into a valid project path.
func Slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			b.WriteRune(r)
		case r == ' ' || r == '/':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-.")
}

func validPath(path string) bool {
	if path == "" {
		return false
	}
	for _, r := range path {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
		default:
			return false
		}
	}
	return true
}
