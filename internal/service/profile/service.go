package profile

import (
	"context"
	"strings"

	"log/slog"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/repository"
)

// Input carries the editable profile fields. A nil AvatarURL keeps the stored avatar.
type Input struct {
	FullName  string  `json:"full_name"`
	AvatarURL *string `json:"avatar_url"`
}

// Notifier is told when a user's details change.
type Notifier interface {
	NotifyUserUpdated(ctx context.Context, userID string)
}

// Service manages user profiles.
type Service struct {
	repo     repository.ProfileRepository
	notifier Notifier
	logger   *slog.Logger
}

// New returns a profile service. notifier may be nil.
func New(repo repository.ProfileRepository, notifier Notifier, logger *slog.Logger) Service {
	return Service{repo: repo, notifier: notifier, logger: logger}
}

// Get returns the user's profile.
func (s Service) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	return s.repo.GetProfile(ctx, userID)
}

// Update stores the profile and returns the saved row.
func (s Service) Update(ctx context.Context, userID string, in Input) (*domain.Profile, error) {
	current, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	current.FullName = strings.TrimSpace(in.FullName)
	if in.AvatarURL != nil {
		current.AvatarURL = strings.TrimSpace(*in.AvatarURL)
	}
	if err := s.repo.UpsertProfile(ctx, current); err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.NotifyUserUpdated(ctx, userID)
	}
	s.logger.Info("profile updated", "user_id", userID)
	return current, nil
}
