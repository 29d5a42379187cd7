package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/recipe-api/internal/apperror"
	"github.com/sakif/recipe-api/internal/metrics"
	"github.com/sakif/recipe-api/internal/model"
	"github.com/sakif/recipe-api/internal/repository"
)

// TagService manages a user's tags.
type TagService struct {
	repo   repository.TagRepository
	logger *slog.Logger
}

func NewTagService(repo repository.TagRepository, logger *slog.Logger) *TagService {
	return &TagService{repo: repo, logger: logger}
}

// List returns the owner's tags, name descending. With assignedOnly set,
// only tags attached to at least one of the owner's recipes are returned.
func (s *TagService) List(ctx context.Context, ownerID string, assignedOnly bool) ([]model.Tag, error) {
	tags, err := s.repo.ListTags(ctx, ownerID, repository.LabelFilter{AssignedOnly: assignedOnly})
	if err != nil {
		s.logger.Error("failed to list tags", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	return tags, nil
}

func (s *TagService) Create(ctx context.Context, ownerID, name string) (*model.Tag, error) {
	name, err := labelName(name)
	if err != nil {
		return nil, err
	}

	tag := &model.Tag{UserID: ownerID, Name: name}
	if err := s.repo.CreateTag(ctx, tag); err != nil {
		s.logger.Error("failed to create tag",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating tag: %w", err)
	}

	metrics.CatalogEntriesCreatedTotal.WithLabelValues("tag").Inc()
	s.logger.Info("tag created", slog.Int64("id", tag.ID), slog.String("name", tag.Name))
	return tag, nil
}

// IngredientService manages a user's ingredients.
type IngredientService struct {
	repo   repository.IngredientRepository
	logger *slog.Logger
}

func NewIngredientService(repo repository.IngredientRepository, logger *slog.Logger) *IngredientService {
	return &IngredientService{repo: repo, logger: logger}
}

func (s *IngredientService) List(ctx context.Context, ownerID string, assignedOnly bool) ([]model.Ingredient, error) {
	ingredients, err := s.repo.ListIngredients(ctx, ownerID, repository.LabelFilter{AssignedOnly: assignedOnly})
	if err != nil {
		s.logger.Error("failed to list ingredients", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing ingredients: %w", err)
	}
	return ingredients, nil
}

func (s *IngredientService) Create(ctx context.Context, ownerID, name string) (*model.Ingredient, error) {
	name, err := labelName(name)
	if err != nil {
		return nil, err
	}

	ingredient := &model.Ingredient{UserID: ownerID, Name: name}
	if err := s.repo.CreateIngredient(ctx, ingredient); err != nil {
		s.logger.Error("failed to create ingredient",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating ingredient: %w", err)
	}

	metrics.CatalogEntriesCreatedTotal.WithLabelValues("ingredient").Inc()
	s.logger.Info("ingredient created", slog.Int64("id", ingredient.ID), slog.String("name", ingredient.Name))
	return ingredient, nil
}

func labelName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperror.ValidationFailed("name", "name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxNameLength))
	}
	return name, nil
}
