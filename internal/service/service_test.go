package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/recipe-api/internal/apperror"
	"github.com/sakif/recipe-api/internal/auth"
	"github.com/sakif/recipe-api/internal/media"
	"github.com/sakif/recipe-api/internal/model"
	"github.com/sakif/recipe-api/internal/repository"
	"github.com/sakif/recipe-api/internal/repository/sqlite"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeUserRepo is an in-memory repository.UserRepository. Set the *Err fields
// to simulate a database failure.
type fakeUserRepo struct {
	mu        sync.Mutex
	users     map[string]*model.User
	createErr error
	updateErr error
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.Conflict("user", "email")
		}
	}
	user.ID = xid.New().String()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) UpdateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.users[user.ID]; !ok {
		return apperror.NotFound("user", user.ID)
	}
	for id, u := range f.users {
		if id != user.ID && u.Email == user.Email {
			return apperror.Conflict("user", "email")
		}
	}
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestUserService(t *testing.T, users repository.UserRepository) *UserService {
	t.Helper()
	tokens, err := auth.NewTokenService(strings.Repeat("k", 32), time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	// bcrypt.MinCost keeps the suite fast.
	return NewUserService(users, auth.NewPasswordService(4), tokens, DefaultMinPasswordLength, testLogger())
}

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// recipeFixture bundles a recipe service over an in-memory database and a
// temporary media root, plus an owner to act as.
type recipeFixture struct {
	db          *sqlite.DB
	images      *media.ImageStore
	users       *UserService
	tags        *TagService
	ingredients *IngredientService
	recipes     *RecipeService
	owner       *model.User
}

func newRecipeFixture(t *testing.T) *recipeFixture {
	t.Helper()
	db := newTestDB(t)
	images := media.NewImageStore(t.TempDir(), "/media/", 1<<20)
	f := &recipeFixture{
		db:          db,
		images:      images,
		users:       newTestUserService(t, db),
		tags:        NewTagService(db, testLogger()),
		ingredients: NewIngredientService(db, testLogger()),
		recipes:     NewRecipeService(db, db, db, images, testLogger()),
	}
	f.owner = f.createUser(t, "owner@example.com")
	return f
}

func (f *recipeFixture) createUser(t *testing.T, email string) *model.User {
	t.Helper()
	u, err := f.users.CreateUser(context.Background(), email, "testpass", "")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	return u
}

func (f *recipeFixture) createTag(t *testing.T, owner *model.User, name string) *model.Tag {
	t.Helper()
	tag, err := f.tags.Create(context.Background(), owner.ID, name)
	if err != nil {
		t.Fatalf("Create tag error = %v", err)
	}
	return tag
}

func (f *recipeFixture) createIngredient(t *testing.T, owner *model.User, name string) *model.Ingredient {
	t.Helper()
	ing, err := f.ingredients.Create(context.Background(), owner.ID, name)
	if err != nil {
		t.Fatalf("Create ingredient error = %v", err)
	}
	return ing
}

func ptr[T any](v T) *T { return &v }
