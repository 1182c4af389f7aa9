// Package clenv provides functionality to work with environment variables.
package clenv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// GitRoot returns the absolute path of the root of the git repository that holds the working directory.
func GitRoot(ctx context.Context) (string, error) {
	var errb, outb bytes.Buffer

	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	cmd.Stderr = &errb
	cmd.Stdout = &outb

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to run git rev-parse --show-toplevel: %w: %v", err, errb.String())
	}

	return strings.TrimSpace(outb.String()), nil
}

// InGitRoot returns the names joined with the root of the git repository. Absolute names are returned
// as is. The input is not modified.
func InGitRoot(ctx context.Context, names ...string) ([]string, error) {
	root, err := GitRoot(ctx)
	if err != nil {
		return nil, err
	}

	rooted := make([]string, len(names))
	for i, name := range names {
		rooted[i] = name
		if !filepath.IsAbs(name) {
			rooted[i] = filepath.Join(root, name)
		}
	}

	return rooted, nil
}

// LoadFromGitRoot loads environment variables from a file in the root of
// the git repository.
func LoadFromGitRoot(ctx context.Context, names ...string) error {
	rooted, err := InGitRoot(ctx, names...)
	if err != nil {
		return err
	}

	return godotenv.Load(rooted...) //nolint: wrapcheck
}

// LoadOptional loads environment variables from the given files but ignores files that do not exist. It
// is used by the cli to pick up a local .env file when present.
func LoadOptional(names ...string) error {
	for _, name := range names {
		if err := godotenv.Load(name); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}

			return fmt.Errorf("failed to load '%s': %w", name, err)
		}
	}

	return nil
}
