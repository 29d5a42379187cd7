// Package media stores uploaded recipe images on the local filesystem.
//
// Only payloads that decode as an image are accepted. The decoders for JPEG,
// PNG and GIF come from the standard library; WebP comes from golang.org/x/image.
// Files are named after the recipe ID plus a fresh xid, so two uploads for the
// same recipe (or for recipes of different users) never collide.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/xid"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// RecipeImageDir is the directory, relative to the media root, that holds
// recipe images.
const RecipeImageDir = "uploads/recipe"

// ErrNotAnImage is returned when the uploaded payload is not a decodable image.
var ErrNotAnImage = errors.New("media: upload a valid image; the file is either not an image or corrupted")

// ErrTooLarge is returned when the upload exceeds the configured size cap.
var ErrTooLarge = errors.New("media: image too large")

// extensions maps the format name reported by image.DecodeConfig to the
// file extension we store.
var extensions = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
	"webp": ".webp",
}

// ImageStore persists images under Root and builds their public URLs from
// BaseURL.
type ImageStore struct {
	root    string
	baseURL string
	maxSize int64
}

// NewImageStore creates the store. baseURL is the public prefix under which
// root is served (e.g. "/media/"). maxSize caps a single upload in bytes.
func NewImageStore(root, baseURL string, maxSize int64) *ImageStore {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &ImageStore{root: root, baseURL: baseURL, maxSize: maxSize}
}

// Root returns the directory images are written under.
func (s *ImageStore) Root() string {
	return s.root
}

// SaveRecipeImage validates r as an image and writes it to disk. It returns
// the stored path relative to the root, e.g. "uploads/recipe/12-<xid>.png".
//
// Nothing is written when the payload is not an image.
func (s *ImageStore) SaveRecipeImage(recipeID int64, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("media: reading upload: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return "", fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, s.maxSize)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", ErrNotAnImage
	}
	ext, ok := extensions[format]
	if !ok {
		return "", ErrNotAnImage
	}

	name := fmt.Sprintf("%d-%s%s", recipeID, xid.New().String(), ext)
	rel := path.Join(RecipeImageDir, name)

	dir := filepath.Join(s.root, filepath.FromSlash(RecipeImageDir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("media: creating %s: %w", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("media: writing %s: %w", rel, err)
	}
	return rel, nil
}

// Delete removes a stored file. A missing file is not an error.
func (s *ImageStore) Delete(rel string) error {
	if rel == "" {
		return nil
	}
	full, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("media: removing %s: %w", rel, err)
	}
	return nil
}

// URL returns the public URL of a stored path, or "" for no image.
func (s *ImageStore) URL(rel string) string {
	if rel == "" {
		return ""
	}
	return s.baseURL + rel
}

// resolve maps rel onto the filesystem and refuses anything that escapes root.
func (s *ImageStore) resolve(rel string) (string, error) {
	clean := path.Clean("/" + rel)[1:]
	if clean == "" || clean != rel {
		return "", fmt.Errorf("media: invalid path %q", rel)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}
