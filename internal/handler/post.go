package handler

import (
	"errors"
	"net/http"

	"github.com/foodrescue/foodrescue/internal/apierror"
	"github.com/foodrescue/foodrescue/internal/ctxkeys"
	"github.com/foodrescue/foodrescue/internal/model"
	"github.com/foodrescue/foodrescue/internal/service"
	"github.com/foodrescue/foodrescue/internal/validation"
)

type postHandler struct {
	postService  *service.PostService
	claimService *service.ClaimService
}

func NewPostHandler(postService *service.PostService, claimService *service.ClaimService) *postHandler {
	return &postHandler{
		postService:  postService,
		claimService: claimService,
	}
}

func (h *postHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.PostInput
	err := decodeJSON(w, r, &in)
	if err != nil {
		apierror.ValidationError(w, err.Error())
		return
	}

	post, err := h.postService.Create(r.Context(), ctxkeys.User(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, post)
}

// List is the public feed of open posts that can still be picked up.
func (h *postHandler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.postService.Available(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

func (h *postHandler) Restaurant(w http.ResponseWriter, r *http.Request) {
	posts, err := h.postService.ForRestaurant(r.Context(), ctxkeys.User(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

func (h *postHandler) Shelter(w http.ResponseWriter, r *http.Request) {
	posts, err := h.postService.ForShelter(r.Context(), ctxkeys.User(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *postHandler) Claim(w http.ResponseWriter, r *http.Request) {
	post, err := h.claimService.Claim(r.Context(), r.PathValue("id"), ctxkeys.User(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "post": post})
}

func (h *postHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	// Room for the photo plus multipart framing
	r.Body = http.MaxBytesReader(w, r.Body, validation.PhotoConstraints.MaxSize+(1<<20))
	err := r.ParseMultipartForm(validation.PhotoConstraints.MaxSize)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apierror.WriteError(w, http.StatusRequestEntityTooLarge, apierror.CodeValidationError, "photo is too large")
			return
		}
		apierror.ValidationError(w, "expected a multipart form with a photo field")
		return
	}

	files := r.MultipartForm.File["photo"]
	if len(files) == 0 {
		apierror.ValidationError(w, "photo is required")
		return
	}

	post, err := h.postService.AttachPhoto(r.Context(), ctxkeys.User(r.Context()), r.PathValue("id"), files[0])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}
