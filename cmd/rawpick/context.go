package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"rawpick/internal/config"
	"rawpick/internal/logging"
	"rawpick/internal/scanner"
	"rawpick/internal/session"
	"rawpick/internal/sessionstore"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			LogDir: cfg.Logging.LogDir,
		})
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) openJournal() (*sessionstore.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return sessionstore.Open(cfg.Paths.StateDir)
}

// withSession opens folder as a locked culling session, runs fn, and closes
// the session (flushing pending sidecar writes) even when fn fails.
func (c *commandContext) withSession(cmd *cobra.Command, folder string, fn func(context.Context, *session.Session) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}

	root, err := resolveFolder(folder)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	journal, err := c.openJournal()
	if err != nil {
		logger.Warn("session journal unavailable", logging.Error(err))
		journal = nil
	} else {
		defer journal.Close()
	}

	sess, err := session.Open(ctx, cfg, root, session.Options{Journal: journal, Logger: logger})
	if err != nil {
		return err
	}

	runErr := fn(ctx, sess)
	closeErr := sess.Close(ctx)
	return errors.Join(runErr, closeErr)
}

func resolveFolder(arg string) (string, error) {
	expanded, err := config.ExpandPath(arg)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		return "", fmt.Errorf("open folder %s: %w", expanded, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", expanded)
	}
	return expanded, nil
}

// assetIndex resolves a user-supplied photo reference (absolute path, name,
// or bare stem) to its position in the catalog.
func assetIndex(catalog *scanner.Catalog, root, arg string) (int, error) {
	candidate := arg
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(root, candidate)
	}
	if idx, ok := catalog.Index(candidate); ok {
		return idx, nil
	}
	for i := 0; i < catalog.Len(); i++ {
		asset := catalog.Assets[i]
		if filepath.Base(asset.Path) == arg || asset.Stem() == arg {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no photo named %s in %s", arg, root)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
