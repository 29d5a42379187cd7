package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/sakif/recipe-api/internal/apperror"
	"github.com/sakif/recipe-api/internal/model"
	"github.com/sakif/recipe-api/internal/service"
	"github.com/sakif/recipe-api/internal/validation"
)

// LabelResponse is the wire shape of a tag or an ingredient.
type LabelResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type createLabelRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

func tagResponses(tags []model.Tag) []LabelResponse {
	out := make([]LabelResponse, 0, len(tags))
	for _, t := range tags {
		out = append(out, LabelResponse{ID: t.ID, Name: t.Name})
	}
	return out
}

func ingredientResponses(ingredients []model.Ingredient) []LabelResponse {
	out := make([]LabelResponse, 0, len(ingredients))
	for _, i := range ingredients {
		out = append(out, LabelResponse{ID: i.ID, Name: i.Name})
	}
	return out
}

// TagHandler serves GET/POST /recipe/tags.
type TagHandler struct {
	tags     *service.TagService
	validate *validation.Validator
	logger   *slog.Logger
}

func NewTagHandler(tags *service.TagService, validate *validation.Validator, logger *slog.Logger) *TagHandler {
	return &TagHandler{tags: tags, validate: validate, logger: logger}
}

// HandleList returns the caller's tags. ?assigned_only=1 keeps only tags used
// by at least one of the caller's recipes.
func (h *TagHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	assignedOnly, err := assignedOnlyParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	tags, err := h.tags.List(r.Context(), userID, assignedOnly)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tagResponses(tags))
}

func (h *TagHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req createLabelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		writeError(w, err)
		return
	}

	tag, err := h.tags.Create(r.Context(), userID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, LabelResponse{ID: tag.ID, Name: tag.Name})
}

// IngredientHandler serves GET/POST /recipe/ingredients.
type IngredientHandler struct {
	ingredients *service.IngredientService
	validate    *validation.Validator
	logger      *slog.Logger
}

func NewIngredientHandler(ingredients *service.IngredientService, validate *validation.Validator, logger *slog.Logger) *IngredientHandler {
	return &IngredientHandler{ingredients: ingredients, validate: validate, logger: logger}
}

func (h *IngredientHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	assignedOnly, err := assignedOnlyParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ingredients, err := h.ingredients.List(r.Context(), userID, assignedOnly)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ingredientResponses(ingredients))
}

func (h *IngredientHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req createLabelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		writeError(w, err)
		return
	}

	ingredient, err := h.ingredients.Create(r.Context(), userID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, LabelResponse{ID: ingredient.ID, Name: ingredient.Name})
}

// assignedOnlyParam parses ?assigned_only. Absent means false; the value
// follows strconv.ParseBool, so "1"/"0" and "true"/"false" both work.
func assignedOnlyParam(r *http.Request) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("assigned_only"))
	if raw == "" {
		return false, nil
	}
	// Integers follow the usual truthiness: any non-zero value means true.
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n != 0, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperror.ValidationFailed("assigned_only", "assigned_only must be an integer or a boolean")
	}
	return v, nil
}
