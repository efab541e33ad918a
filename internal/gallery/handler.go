package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/avolkov/picshare/backend/internal/auth"
	"github.com/avolkov/picshare/backend/internal/models"
	"github.com/avolkov/picshare/backend/internal/store"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "gallery").Logger()

// MaxUploadSize bounds the in-memory portion of a multipart upload.
const MaxUploadSize = 50 << 20 // 50MB

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ImageStore defines the interface for image persistence.
type ImageStore interface {
	CreateImage(ctx context.Context, img *models.Image) (*models.Image, error)
	ListPublicImages(ctx context.Context) ([]models.Image, error)
	ListImagesByOwner(ctx context.Context, ownerID int64) ([]models.Image, error)
	GetImageByID(ctx context.Context, id int64) (*models.Image, error)
	DeleteImage(ctx context.Context, id int64) error
}

// UserStore is the slice of user persistence the gallery needs: the
// owner's username is denormalized onto each image row at upload time.
type UserStore interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// FileStore defines the interface for object storage.
type FileStore interface {
	Upload(ctx context.Context, r io.Reader, size int64, originalFilename, contentType string) (string, error)
	Remove(ctx context.Context, publicURL string) error
}

// Handler holds gallery HTTP handlers.
type Handler struct {
	images  ImageStore
	users   UserStore
	uploads FileStore
}

func NewHandler(images ImageStore, users UserStore, uploads FileStore) *Handler {
	return &Handler{images: images, users: users, uploads: uploads}
}

// Upload accepts a multipart batch of 1..N files sharing one display
// name and visibility tag, pushes each file to object storage and
// persists one image row per uploaded file. Rows are committed one by
// one; a failure mid-batch leaves earlier rows in place.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		http.Error(w, `{"error":"not authenticated"}`, http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		http.Error(w, `{"error":"invalid multipart form"}`, http.StatusBadRequest)
		return
	}

	name := r.FormValue("name")
	if name == "" {
		http.Error(w, `{"error":"image name is required"}`, http.StatusBadRequest)
		return
	}

	visibility := models.Visibility(r.FormValue("visibility"))
	if visibility == "" {
		visibility = models.VisibilityPublic
	}
	if !visibility.Valid() {
		http.Error(w, `{"error":"visibility must be public or private"}`, http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		http.Error(w, `{"error":"at least one image is required"}`, http.StatusBadRequest)
		return
	}
	// One empty entry rejects the whole batch before anything is
	// uploaded or persisted.
	for _, fh := range files {
		if fh.Size == 0 {
			http.Error(w, `{"error":"empty file in upload"}`, http.StatusBadRequest)
			return
		}
	}

	owner, err := h.users.GetUserByID(r.Context(), userID)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("owner lookup")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	created := make([]models.Image, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			logger.Error().Err(err).Str("filename", fh.Filename).Msg("open form file")
			continue
		}

		url, err := h.uploads.Upload(r.Context(), f, fh.Size, fh.Filename, fh.Header.Get("Content-Type"))
		f.Close()
		if err != nil {
			// A failed upload is reported once and not retried; the
			// rest of the batch still goes through.
			logger.Error().Err(err).Str("filename", fh.Filename).Msg("object upload")
			continue
		}

		img, err := h.images.CreateImage(r.Context(), &models.Image{
			ImageURL:   url,
			ImageName:  name,
			Permission: visibility,
			OwnerName:  owner.Username,
			OwnerID:    owner.ID,
		})
		if err != nil {
			logger.Error().Err(err).Str("image_url", url).Msg("persist image")
			continue
		}
		created = append(created, *img)
	}

	if len(created) == 0 {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upload failed"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"images": created})
}

// ListPublic returns every public image, newest first.
func (h *Handler) ListPublic(w http.ResponseWriter, r *http.Request) {
	images, err := h.images.ListPublicImages(r.Context())
	if err != nil {
		logger.Error().Err(err).Msg("list public images")
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}
	if images == nil {
		images = []models.Image{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"images": images})
}

// ListMine returns the current user's images, any visibility, newest first.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		http.Error(w, `{"error":"not authenticated"}`, http.StatusUnauthorized)
		return
	}

	images, err := h.images.ListImagesByOwner(r.Context(), userID)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("list own images")
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}
	if images == nil {
		images = []models.Image{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"images": images})
}

// Delete removes an image row by id and best-effort removes the stored
// object. Any authenticated user may delete any image.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, `{"error":"invalid image id"}`, http.StatusBadRequest)
		return
	}

	img, err := h.images.GetImageByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, `{"error":"image not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Error().Err(err).Int64("image_id", id).Msg("image lookup")
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}

	if err := h.images.DeleteImage(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, `{"error":"image not found"}`, http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Int64("image_id", id).Msg("delete image")
		http.Error(w, `{"error":"delete failed"}`, http.StatusInternalServerError)
		return
	}

	if err := h.uploads.Remove(r.Context(), img.ImageURL); err != nil {
		logger.Warn().Err(err).Str("image_url", img.ImageURL).Msg("object cleanup")
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}
