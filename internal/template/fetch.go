// Package template locates the template source tree, cloning it from the
// configured repository when no local copy exists.
package template

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/tplbuild/internal/config"
	"git.home.luguber.info/inful/tplbuild/internal/errors"
	"git.home.luguber.info/inful/tplbuild/internal/logfields"
)

// Ensure returns the template root path, cloning the configured repository
// into the configured path when the path does not exist yet. An existing
// path is used as-is; keeping it fresh is the operator's concern.
func Ensure(ctx context.Context, tc config.TemplateConfig) (string, error) {
	if tc.Path == "" {
		return "", errors.ConfigError("template path is not configured")
	}
	if info, err := os.Stat(tc.Path); err == nil {
		if !info.IsDir() {
			return "", errors.ConfigError(fmt.Sprintf("template path is not a directory: %s", tc.Path))
		}
		return tc.Path, nil
	}

	if tc.Repository == "" {
		return "", errors.ConfigError(fmt.Sprintf(
			"template path does not exist and no repository is configured: %s", tc.Path))
	}
	if err := clone(ctx, tc); err != nil {
		return "", err
	}
	return tc.Path, nil
}

func clone(ctx context.Context, tc config.TemplateConfig) error {
	slog.Info("cloning template repository",
		slog.String("repository", tc.Repository),
		slog.String("ref", tc.Ref),
		logfields.Path(tc.Path))

	cloneOptions := &git.CloneOptions{
		URL:   tc.Repository,
		Depth: 1,
	}
	if tc.Ref != "" {
		cloneOptions.ReferenceName = plumbing.NewBranchReferenceName(tc.Ref)
		cloneOptions.SingleBranch = true
	}

	repository, err := git.PlainCloneContext(ctx, tc.Path, false, cloneOptions)
	if err != nil {
		return errors.Wrap(err, errors.CategoryTemplate, errors.SeverityFatal,
			fmt.Sprintf("clone template repository %s", tc.Repository))
	}

	if ref, err := repository.Head(); err == nil {
		slog.Info("template repository cloned",
			slog.String("commit", ref.Hash().String()[:8]),
			logfields.Path(tc.Path))
	}
	return nil
}
