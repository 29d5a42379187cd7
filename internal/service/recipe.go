package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/sakif/recipe-api/internal/apperror"
	"github.com/sakif/recipe-api/internal/media"
	"github.com/sakif/recipe-api/internal/metrics"
	"github.com/sakif/recipe-api/internal/model"
	"github.com/sakif/recipe-api/internal/repository"
)

const (
	MaxTitleLength = 255
	MaxLinkLength  = 255

	// Prices are stored with two decimal places and at most five digits.
	priceDecimalPlaces = 2
)

var maxPrice = decimal.New(1000, 0)

// ImageStore is the part of media.ImageStore the recipe service needs.
type ImageStore interface {
	SaveRecipeImage(recipeID int64, r io.Reader) (string, error)
	Delete(rel string) error
}

// RecipeInput carries the writable recipe fields.
//
// A nil scalar means "not supplied". For TagIDs and IngredientIDs a nil slice
// means "not supplied" and a non-nil empty slice means "clear".
type RecipeInput struct {
	Title         *string
	TimeMinutes   *int
	Price         *decimal.Decimal
	Link          *string
	TagIDs        []int64
	IngredientIDs []int64
}

// RecipeService manages a user's recipes, their links and their images.
type RecipeService struct {
	recipes     repository.RecipeRepository
	tags        repository.TagRepository
	ingredients repository.IngredientRepository
	images      ImageStore
	logger      *slog.Logger
}

func NewRecipeService(
	recipes repository.RecipeRepository,
	tags repository.TagRepository,
	ingredients repository.IngredientRepository,
	images ImageStore,
	logger *slog.Logger,
) *RecipeService {
	return &RecipeService{
		recipes:     recipes,
		tags:        tags,
		ingredients: ingredients,
		images:      images,
		logger:      logger,
	}
}

// List returns the owner's recipes, newest first. Each non-empty id list in
// filter keeps recipes linked to at least one of its ids.
func (s *RecipeService) List(ctx context.Context, ownerID string, filter repository.RecipeFilter) ([]model.Recipe, error) {
	recipes, err := s.recipes.ListRecipes(ctx, ownerID, filter)
	if err != nil {
		s.logger.Error("failed to list recipes", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing recipes: %w", err)
	}
	return recipes, nil
}

// Get returns one of the owner's recipes. Another user's recipe is reported
// as not found.
func (s *RecipeService) Get(ctx context.Context, ownerID string, id int64) (*model.Recipe, error) {
	return s.recipes.GetRecipe(ctx, ownerID, id)
}

// Create stores a new recipe. Title, time and price are required; omitted
// tags and ingredients mean none.
func (s *RecipeService) Create(ctx context.Context, ownerID string, in RecipeInput) (*model.Recipe, error) {
	if err := requireScalars(in); err != nil {
		return nil, err
	}

	recipe := &model.Recipe{UserID: ownerID}
	if err := s.apply(ctx, recipe, in); err != nil {
		return nil, err
	}
	links := repository.RecipeLinks{
		TagIDs:        nonNil(in.TagIDs),
		IngredientIDs: nonNil(in.IngredientIDs),
	}

	if err := s.recipes.CreateRecipe(ctx, recipe, links); err != nil {
		s.logger.Error("failed to create recipe",
			slog.String("title", recipe.Title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating recipe: %w", err)
	}

	metrics.CatalogEntriesCreatedTotal.WithLabelValues("recipe").Inc()
	s.logger.Info("recipe created",
		slog.Int64("id", recipe.ID),
		slog.String("title", recipe.Title),
		slog.Int("tags", len(links.TagIDs)),
		slog.Int("ingredients", len(links.IngredientIDs)),
	)
	return s.recipes.GetRecipe(ctx, ownerID, recipe.ID)
}

// Update changes one of the owner's recipes.
//
// With full=false (PATCH) only supplied fields change, and a supplied tag or
// ingredient list replaces the existing one. With full=true (PUT) title, time
// and price are required, an omitted link is cleared and omitted tag or
// ingredient lists clear the existing links.
func (s *RecipeService) Update(ctx context.Context, ownerID string, id int64, in RecipeInput, full bool) (*model.Recipe, error) {
	recipe, err := s.recipes.GetRecipe(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if full {
		if err := requireScalars(in); err != nil {
			return nil, err
		}
		if in.Link == nil {
			in.Link = new(string)
		}
		in.TagIDs = nonNil(in.TagIDs)
		in.IngredientIDs = nonNil(in.IngredientIDs)
	}

	if err := s.apply(ctx, recipe, in); err != nil {
		return nil, err
	}
	links := repository.RecipeLinks{TagIDs: in.TagIDs, IngredientIDs: in.IngredientIDs}

	if err := s.recipes.UpdateRecipe(ctx, recipe, links); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to update recipe",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating recipe: %w", err)
	}

	s.logger.Info("recipe updated", slog.Int64("id", id), slog.Bool("full", full))
	return s.recipes.GetRecipe(ctx, ownerID, id)
}

// Delete removes one of the owner's recipes together with its image file.
func (s *RecipeService) Delete(ctx context.Context, ownerID string, id int64) error {
	recipe, err := s.recipes.GetRecipe(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.recipes.DeleteRecipe(ctx, ownerID, id); err != nil {
		return err
	}
	s.removeImage(recipe.Image)

	s.logger.Info("recipe deleted", slog.Int64("id", id))
	return nil
}

// UploadImage stores r as the recipe's image, replacing any previous one.
// A payload that is not a decodable image is a validation error and leaves
// the recipe untouched.
func (s *RecipeService) UploadImage(ctx context.Context, ownerID string, id int64, r io.Reader) (*model.Recipe, error) {
	recipe, err := s.recipes.GetRecipe(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	rel, err := s.images.SaveRecipeImage(recipe.ID, r)
	if err != nil {
		switch {
		case errors.Is(err, media.ErrNotAnImage):
			metrics.ImageUploadsTotal.WithLabelValues("rejected").Inc()
			return nil, apperror.ValidationFailed("image",
				"upload a valid image; the file you uploaded was either not an image or a corrupted image")
		case errors.Is(err, media.ErrTooLarge):
			metrics.ImageUploadsTotal.WithLabelValues("rejected").Inc()
			return nil, apperror.ValidationFailed("image", "image is too large")
		}
		s.logger.Error("failed to store image",
			slog.Int64("recipeID", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("storing image: %w", err)
	}

	if err := s.recipes.SetRecipeImage(ctx, ownerID, id, rel); err != nil {
		s.removeImage(rel)
		return nil, fmt.Errorf("saving image reference: %w", err)
	}
	s.removeImage(recipe.Image)
	recipe.Image = rel

	metrics.ImageUploadsTotal.WithLabelValues("stored").Inc()
	s.logger.Info("recipe image uploaded", slog.Int64("recipeID", id), slog.String("image", rel))
	return recipe, nil
}

// DeleteImage detaches and removes the recipe's image. Deleting a missing
// image is not an error.
func (s *RecipeService) DeleteImage(ctx context.Context, ownerID string, id int64) error {
	recipe, err := s.recipes.GetRecipe(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if recipe.Image == "" {
		return nil
	}
	if err := s.recipes.SetRecipeImage(ctx, ownerID, id, ""); err != nil {
		return fmt.Errorf("clearing image reference: %w", err)
	}
	s.removeImage(recipe.Image)

	s.logger.Info("recipe image deleted", slog.Int64("recipeID", id))
	return nil
}

// apply validates in and copies every supplied field onto recipe.
func (s *RecipeService) apply(ctx context.Context, recipe *model.Recipe, in RecipeInput) error {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return apperror.ValidationFailed("title", "title is required")
		}
		if utf8.RuneCountInString(title) > MaxTitleLength {
			return apperror.ValidationFailed("title",
				fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
		}
		recipe.Title = title
	}
	if in.TimeMinutes != nil {
		if *in.TimeMinutes < 0 {
			return apperror.ValidationFailed("time_minutes", "time_minutes must be greater than or equal to 0")
		}
		recipe.TimeMinutes = *in.TimeMinutes
	}
	if in.Price != nil {
		if err := validatePrice(*in.Price); err != nil {
			return err
		}
		recipe.Price = *in.Price
	}
	if in.Link != nil {
		link := strings.TrimSpace(*in.Link)
		if utf8.RuneCountInString(link) > MaxLinkLength {
			return apperror.ValidationFailed("link",
				fmt.Sprintf("link must be %d characters or less", MaxLinkLength))
		}
		recipe.Link = link
	}

	if err := s.checkOwned(ctx, recipe.UserID, "tags", in.TagIDs, s.tags.CountOwnedTags); err != nil {
		return err
	}
	return s.checkOwned(ctx, recipe.UserID, "ingredients", in.IngredientIDs, s.ingredients.CountOwnedIngredients)
}

// checkOwned rejects ids that do not exist or belong to another user.
func (s *RecipeService) checkOwned(
	ctx context.Context,
	ownerID, field string,
	ids []int64,
	count func(context.Context, string, []int64) (int, error),
) error {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil
	}
	n, err := count(ctx, ownerID, ids)
	if err != nil {
		return fmt.Errorf("checking %s: %w", field, err)
	}
	if n != len(ids) {
		return apperror.ValidationFailed(field, "invalid pk; object does not exist")
	}
	return nil
}

func (s *RecipeService) removeImage(rel string) {
	if rel == "" {
		return
	}
	if err := s.images.Delete(rel); err != nil {
		s.logger.Warn("failed to remove image file",
			slog.String("image", rel),
			slog.String("error", err.Error()),
		)
	}
}

func requireScalars(in RecipeInput) error {
	switch {
	case in.Title == nil:
		return apperror.ValidationFailed("title", "title is required")
	case in.TimeMinutes == nil:
		return apperror.ValidationFailed("time_minutes", "time_minutes is required")
	case in.Price == nil:
		return apperror.ValidationFailed("price", "price is required")
	}
	return nil
}

func validatePrice(p decimal.Decimal) error {
	if p.IsNegative() {
		return apperror.ValidationFailed("price", "price must be greater than or equal to 0")
	}
	if !p.Round(priceDecimalPlaces).Equal(p) {
		return apperror.ValidationFailed("price", "price must have no more than 2 decimal places")
	}
	if p.GreaterThanOrEqual(maxPrice) {
		return apperror.ValidationFailed("price", "price must have no more than 5 digits in total")
	}
	return nil
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
