package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"

	"github.com/foodrescue/foodrescue/internal/model"
	"github.com/foodrescue/foodrescue/internal/repository"
	"github.com/foodrescue/foodrescue/internal/validation"
	"github.com/google/uuid"
)

var ErrStorageDisabled = errors.New("photo uploads are not configured")

// ShelterPosts is the shelter dashboard: what can be claimed and what the shelter already claimed.
type ShelterPosts struct {
	Available []*model.PostWithProvider `json:"available_posts"`
	Claimed   []*model.PostWithProvider `json:"claimed_posts"`
}

type PostService struct {
	postRepository repository.PostRepository
	fileService    *FileService // nil when no storage is configured
	now            Clock
}

func NewPostService(postRepository repository.PostRepository, fileService *FileService, now Clock) *PostService {
	return &PostService{
		postRepository: postRepository,
		fileService:    fileService,
		now:            now.orDefault(),
	}
}

// Create publishes a new open post for a restaurant.
func (s *PostService) Create(ctx context.Context, actor *model.User, in model.PostInput) (*model.Post, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if !actor.IsRestaurant() {
		return nil, ErrUnauthorized
	}

	err := validation.ValidatePost(&in)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	post := &model.Post{
		ID:          uuid.New().String(),
		ProviderID:  actor.ID,
		Description: in.Description,
		QtyEstimate: in.QtyEstimate,
		PickupStart: in.PickupStart.UTC(),
		PickupEnd:   in.PickupEnd.UTC(),
		Location:    in.Location,
		Status:      model.PostStatusOpen,
		CreatedAt:   s.now().UTC(),
	}

	err = s.postRepository.Create(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	slog.Info("post created", "post_id", post.ID, "provider_id", actor.ID, "qty_estimate", post.QtyEstimate)
	return post, nil
}

// Available lists open posts whose pickup window has not ended, newest first.
func (s *PostService) Available(ctx context.Context) ([]*model.PostWithProvider, error) {
	posts, err := s.postRepository.OpenAvailable(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	for _, p := range posts {
		s.populatePhoto(ctx, &p.Post)
	}
	return posts, nil
}

// ForRestaurant lists every post of the calling restaurant with the claimer's name.
func (s *PostService) ForRestaurant(ctx context.Context, actor *model.User) ([]*model.PostWithClaimer, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if !actor.IsRestaurant() {
		return nil, ErrUnauthorized
	}

	posts, err := s.postRepository.ByProvider(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list restaurant posts: %w", err)
	}

	for _, p := range posts {
		s.populatePhoto(ctx, &p.Post)
	}
	return posts, nil
}

func (s *PostService) ForShelter(ctx context.Context, actor *model.User) (*ShelterPosts, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if !actor.IsShelter() {
		return nil, ErrUnauthorized
	}

	available, err := s.Available(ctx)
	if err != nil {
		return nil, err
	}

	claimed, err := s.postRepository.ClaimedBy(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list claimed posts: %w", err)
	}
	for _, p := range claimed {
		s.populatePhoto(ctx, &p.Post)
	}

	return &ShelterPosts{Available: available, Claimed: claimed}, nil
}

// AttachPhoto uploads a photo for one of the restaurant's own posts, replacing any previous one.
func (s *PostService) AttachPhoto(ctx context.Context, actor *model.User, postID string, header *multipart.FileHeader) (*model.Post, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if !actor.IsRestaurant() {
		return nil, ErrUnauthorized
	}
	if s.fileService == nil {
		return nil, ErrStorageDisabled
	}

	post, err := s.postRepository.ByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	if post.ProviderID != actor.ID {
		return nil, ErrUnauthorized
	}

	mimeType, err := validation.ValidateFile(header, validation.PhotoConstraints)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer func() { _ = file.Close() }()

	photo, err := s.fileService.Upload(ctx, actor.ID, model.FileOwnerPost, post.ID, model.FileTypePhoto, mimeType, file, header, true)
	if err != nil {
		return nil, err
	}

	err = s.postRepository.SetPhoto(ctx, post.ID, photo.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to attach photo: %w", err)
	}

	if post.PhotoFileID != nil {
		err = s.fileService.Delete(ctx, *post.PhotoFileID)
		if err != nil {
			slog.Warn("failed to delete replaced photo", "error", err, "post_id", post.ID)
		}
	}

	post.PhotoFileID = &photo.ID
	post.PhotoURL = s.fileService.URL(ctx, photo)
	return post, nil
}

func (s *PostService) populatePhoto(ctx context.Context, p *model.Post) {
	if s.fileService == nil || p.PhotoFileID == nil {
		return
	}
	p.PhotoURL = s.fileService.URLByID(ctx, *p.PhotoFileID)
}
