package worker

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gitporter/gitporter/internal/models"
	"github.com/gitporter/gitporter/internal/provider"
)

// GitCopier mirrors a project's remote repository into workDir with git.
type GitCopier struct {
	workDir string
}

func NewGitCopier(workDir string) (*GitCopier, error) {
	if workDir == "" {
		return nil, fmt.Errorf("work directory is required")
	}
	if err := os.MkdirAll(workDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	return &GitCopier{workDir: workDir}, nil
}

// Copy runs git clone --mirror for the project's import URL. A leftover
// destination from a previous attempt is removed first so retries start clean.
func (c *GitCopier) Copy(ctx context.Context, project *models.Project) error {
	if project.ImportURL == "" {
		// Nothing to copy, the record alone completes the import.
		return nil
	}
	if err := provider.ValidateCloneURL(project.ImportURL); err != nil {
		return fmt.Errorf("invalid import URL: %w", err)
	}

	destPath := filepath.Join(c.workDir, fmt.Sprintf("%d.git", project.ID))
	if err := validateDestPath(destPath); err != nil {
		return fmt.Errorf("invalid destination path: %w", err)
	}
	if err := os.RemoveAll(destPath); err != nil {
		return fmt.Errorf("failed to clear destination: %w", err)
	}

	// #nosec G204 -- arguments are validated above
	cmd := exec.CommandContext(ctx, "git", "clone", "--mirror", project.ImportURL, destPath)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// Never let git block on a credential prompt.
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git clone failed: %s", sanitizeGitError(stderr.String(), project.ImportURL))
	}
	return nil
}

func validateDestPath(destPath string) error {
	if destPath == "" {
		return fmt.Errorf("destination path cannot be empty")
	}
	for _, c := range []string{"\n", "\r", "\x00", "`", "$", ";", "|", "&", "<", ">"} {
		if strings.Contains(destPath, c) {
			return fmt.Errorf("path contains potentially dangerous character")
		}
	}
	if strings.HasPrefix(filepath.Clean(destPath), "..") {
		return fmt.Errorf("path cannot start with '..'")
	}
	return nil
}

// sanitizeGitError removes credentials embedded in the import URL from git's
// stderr so they never reach logs or the stored import error.
func sanitizeGitError(errMsg, importURL string) string {
	parsed, err := url.Parse(importURL)
	if err != nil || parsed.User == nil {
		return strings.TrimSpace(errMsg)
	}
	if password, ok := parsed.User.Password(); ok && password != "" {
		errMsg = strings.ReplaceAll(errMsg, password, "[REDACTED]")
	}
	if username := parsed.User.Username(); username != "" {
		errMsg = strings.ReplaceAll(errMsg, username, "[REDACTED]")
	}
	return strings.TrimSpace(errMsg)
}
