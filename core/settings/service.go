// Package settings stores the site options this service owns.
package settings

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Option names
const (
	RequiredMiddleLessons = "required_middle_lessons"
)

var (
	// errors
	ErrNotFound = errors.New("option not found")
	ErrNegative = errors.New("value must not be negative")
)

type (
	Repository interface {
		GetOption(ctx context.Context, name string) (string, error)
		// SetOption inserts or replaces the option value.
		SetOption(ctx context.Context, name, value string) error
		// AddOption inserts the option unless it already exists.
		AddOption(ctx context.Context, name, value string) error
	}

	Service struct {
		repo            Repository
		defaultRequired int
	}
)

func NewService(repo Repository, defaultRequiredMiddleLessons int) *Service {
	return &Service{repo: repo, defaultRequired: defaultRequiredMiddleLessons}
}

// EnsureDefaults writes the default options that are not set yet.
func (svc *Service) EnsureDefaults(ctx context.Context) error {
	err := svc.repo.AddOption(ctx, RequiredMiddleLessons, strconv.Itoa(svc.defaultRequired))
	return errors.Wrap(err, "adding default options")
}

// RequiredMiddleLessons reads the threshold from storage on every call.
// A missing or unreadable value falls back to the default.
func (svc *Service) RequiredMiddleLessons(ctx context.Context) (int, error) {
	val, err := svc.repo.GetOption(ctx, RequiredMiddleLessons)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return svc.defaultRequired, nil
		}
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil || n < 0 {
		return svc.defaultRequired, nil
	}
	return n, nil
}

func (svc *Service) SetRequiredMiddleLessons(ctx context.Context, n int) error {
	if n < 0 {
		return ErrNegative
	}
	return svc.repo.SetOption(ctx, RequiredMiddleLessons, strconv.Itoa(n))
}
