package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sakif/recipe-api/internal/apperror"
	"github.com/sakif/recipe-api/internal/model"
	"github.com/sakif/recipe-api/internal/repository"
	"github.com/sakif/recipe-api/internal/service"
	"github.com/sakif/recipe-api/internal/validation"
)

// multipartMemory is how much of a multipart upload is buffered in memory
// before spilling to a temp file.
const multipartMemory = 1 << 20

// ImageURLs turns a stored image path into its public URL.
// *media.ImageStore satisfies it.
type ImageURLs interface {
	URL(rel string) string
}

// RecipeHandler serves /recipe/recipes and its image sub-resource.
type RecipeHandler struct {
	recipes        *service.RecipeService
	images         ImageURLs
	validate       *validation.Validator
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewRecipeHandler(
	recipes *service.RecipeService,
	images ImageURLs,
	validate *validation.Validator,
	maxUploadBytes int64,
	logger *slog.Logger,
) *RecipeHandler {
	return &RecipeHandler{
		recipes:        recipes,
		images:         images,
		validate:       validate,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// ── Wire shapes ──────────────────────────────────────────────────────────────

// RecipeResponse is the list shape: linked tags and ingredients as ids.
type RecipeResponse struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	TimeMinutes int     `json:"time_minutes"`
	Price       string  `json:"price"`
	Link        string  `json:"link"`
	Tags        []int64 `json:"tags"`
	Ingredients []int64 `json:"ingredients"`
	Image       *string `json:"image"`
}

// RecipeDetailResponse is the detail shape: linked tags and ingredients as
// nested {id, name} objects.
type RecipeDetailResponse struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	TimeMinutes int             `json:"time_minutes"`
	Price       string          `json:"price"`
	Link        string          `json:"link"`
	Tags        []LabelResponse `json:"tags"`
	Ingredients []LabelResponse `json:"ingredients"`
	Image       *string         `json:"image"`
}

// RecipeImageResponse is returned by the image upload endpoint.
type RecipeImageResponse struct {
	ID    int64   `json:"id"`
	Image *string `json:"image"`
}

func (h *RecipeHandler) imageURL(rel string) *string {
	if rel == "" {
		return nil
	}
	u := h.images.URL(rel)
	return &u
}

func (h *RecipeHandler) listResponse(r *model.Recipe) RecipeResponse {
	return RecipeResponse{
		ID:          r.ID,
		Title:       r.Title,
		TimeMinutes: r.TimeMinutes,
		Price:       r.Price.StringFixed(2),
		Link:        r.Link,
		Tags:        r.TagIDs(),
		Ingredients: r.IngredientIDs(),
		Image:       h.imageURL(r.Image),
	}
}

func (h *RecipeHandler) detailResponse(r *model.Recipe) RecipeDetailResponse {
	return RecipeDetailResponse{
		ID:          r.ID,
		Title:       r.Title,
		TimeMinutes: r.TimeMinutes,
		Price:       r.Price.StringFixed(2),
		Link:        r.Link,
		Tags:        tagResponses(r.Tags),
		Ingredients: ingredientResponses(r.Ingredients),
		Image:       h.imageURL(r.Image),
	}
}

// recipeRequest is shared by POST, PATCH and PUT. Pointer fields and nil
// slices mean "not supplied"; the service decides what that implies for
// each verb.
type recipeRequest struct {
	Title       *string          `json:"title"        validate:"omitempty,max=255"`
	TimeMinutes *int             `json:"time_minutes" validate:"omitempty,gte=0"`
	Price       *decimal.Decimal `json:"price"`
	Link        *string          `json:"link"         validate:"omitempty,max=255"`
	Tags        []int64          `json:"tags"`
	Ingredients []int64          `json:"ingredients"`
}

func (req recipeRequest) input() service.RecipeInput {
	return service.RecipeInput{
		Title:         req.Title,
		TimeMinutes:   req.TimeMinutes,
		Price:         req.Price,
		Link:          req.Link,
		TagIDs:        req.Tags,
		IngredientIDs: req.Ingredients,
	}
}

// ── Handlers ─────────────────────────────────────────────────────────────────

// HandleList returns the caller's recipes in list shape.
//
// Query parameters:
//
//	tags=1,2         keep recipes tagged with any of the ids
//	ingredients=3,4  keep recipes using any of the ids
//
// Both filters combine with AND.
func (h *RecipeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var filter repository.RecipeFilter
	if filter.TagIDs, err = idsParam(r, "tags"); err != nil {
		writeError(w, err)
		return
	}
	if filter.IngredientIDs, err = idsParam(r, "ingredients"); err != nil {
		writeError(w, err)
		return
	}

	recipes, err := h.recipes.List(r.Context(), userID, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]RecipeResponse, 0, len(recipes))
	for i := range recipes {
		out = append(out, h.listResponse(&recipes[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGet returns one recipe in detail shape.
func (h *RecipeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r, "recipe")
	if err != nil {
		writeError(w, err)
		return
	}

	recipe, err := h.recipes.Get(r.Context(), userID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.detailResponse(recipe))
}

// HandleCreate stores a recipe and answers 201 with its detail shape.
func (h *RecipeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req recipeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		writeError(w, err)
		return
	}

	recipe, err := h.recipes.Create(r.Context(), userID, req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.detailResponse(recipe))
}

// HandlePatch updates only the supplied fields.
func (h *RecipeHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

// HandlePut replaces the recipe; omitted tags and ingredients are cleared.
func (h *RecipeHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

func (h *RecipeHandler) update(w http.ResponseWriter, r *http.Request, full bool) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r, "recipe")
	if err != nil {
		writeError(w, err)
		return
	}
	var req recipeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		writeError(w, err)
		return
	}

	recipe, err := h.recipes.Update(r.Context(), userID, id, req.input(), full)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.detailResponse(recipe))
}

// HandleDelete removes a recipe. 204 on success.
func (h *RecipeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r, "recipe")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.recipes.Delete(r.Context(), userID, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUploadImage accepts a multipart form with the file in field "image".
func (h *RecipeHandler) HandleUploadImage(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r, "recipe")
	if err != nil {
		writeError(w, err)
		return
	}

	// Leave headroom over the file cap for the multipart envelope.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, apperror.ValidationFailed("image", "image is too large"))
			return
		}
		writeError(w, apperror.ValidationFailed("image", "upload must be a multipart form with an image field"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, apperror.ValidationFailed("image", "no file was submitted"))
		return
	}
	defer file.Close()

	recipe, err := h.recipes.UploadImage(r.Context(), userID, id, file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RecipeImageResponse{ID: recipe.ID, Image: h.imageURL(recipe.Image)})
}

// HandleDeleteImage detaches the recipe's image. 204 on success.
func (h *RecipeHandler) HandleDeleteImage(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r, "recipe")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.recipes.DeleteImage(r.Context(), userID, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// idsParam parses a comma-separated id list such as "1,2,3". Blank entries
// are skipped; anything that is not a positive integer is a validation error.
func idsParam(r *http.Request, name string) ([]int64, error) {
	raw := r.URL.Query().Get(name)
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, apperror.ValidationFailed(name, name+" must be a comma-separated list of ids")
		}
		ids = append(ids, id)
	}
	return ids, nil
}
