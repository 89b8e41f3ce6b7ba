package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/comitanigiacomo/ferienplan-sync/internal/core/domain"
)

const (
	MaxImageWidth     = 1200
	MaxImageHeight    = 1200
	ImageQuality      = 80
	ImageCacheControl = "public, max-age=3600"
)

type OfferService struct {
	repo    domain.OfferRepository
	images  domain.ImageStore
	resizer domain.ImageResizer
	logger  *slog.Logger
	now     func() time.Time
}

func NewOfferService(repo domain.OfferRepository, images domain.ImageStore, resizer domain.ImageResizer, logger *slog.Logger) *OfferService {
	return &OfferService{
		repo:    repo,
		images:  images,
		resizer: resizer,
		logger:  logger.With("component", "offer_service"),
		now:     time.Now,
	}
}

type OfferInput struct {
	Title       string
	Description string
	Time        string
	Location    string
	Supervisor  string
	ImageURL    string
	Visible     *bool
}

func (in OfferInput) details() domain.OfferDetails {
	return domain.OfferDetails{
		Title:       in.Title,
		Description: in.Description,
		Time:        in.Time,
		Location:    in.Location,
		Supervisor:  in.Supervisor,
		ImageURL:    in.ImageURL,
	}
}

// AddOffer inserts a new, visible offer and returns its ID.
func (s *OfferService) AddOffer(ctx context.Context, date string, input OfferInput) (string, error) {
	offer, err := domain.NewOffer(date, input.details())
	if err != nil {
		return "", err
	}

	if err := s.repo.Create(ctx, offer); err != nil {
		s.logger.Error("Failed to add offer", "date", date, "error", err)
		return "", fmt.Errorf("add offer: %w", err)
	}

	s.logger.Info("Offer added", "offer_id", offer.ID, "date", date)
	return offer.ID, nil
}

func (s *OfferService) GetOffer(ctx context.Context, id string) (*domain.Offer, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrInvalidOfferID
	}
	return s.repo.GetByID(ctx, id)
}

// UpdateOffer replaces the editable fields of an offer. Visibility defaults
// to visible when the input leaves it unset.
func (s *OfferService) UpdateOffer(ctx context.Context, id string, input OfferInput) error {
	offer, err := s.GetOffer(ctx, id)
	if err != nil {
		return err
	}

	if err := offer.Update(input.details(), input.Visible); err != nil {
		return err
	}

	if err := s.repo.Update(ctx, offer); err != nil {
		s.logger.Error("Failed to update offer", "offer_id", id, "error", err)
		return fmt.Errorf("update offer: %w", err)
	}

	s.logger.Info("Offer updated", "offer_id", id)
	return nil
}

// DeleteOffer removes the offer's image, best-effort, then the offer itself.
func (s *OfferService) DeleteOffer(ctx context.Context, id string) error {
	offer, err := s.GetOffer(ctx, id)
	if err != nil {
		return err
	}

	if offer.HasImage() && s.images != nil {
		path := domain.ImagePathFromURL(*offer.ImageURL)
		if err := s.images.Remove(ctx, []string{path}); err != nil {
			s.logger.Warn("Failed to remove offer image", "offer_id", id, "path", path, "error", err)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete offer", "offer_id", id, "error", err)
		return fmt.Errorf("delete offer: %w", err)
	}

	s.logger.Info("Offer deleted", "offer_id", id)
	return nil
}

// ToggleVisibility stores the negation of current.
func (s *OfferService) ToggleVisibility(ctx context.Context, id string, current bool) error {
	if strings.TrimSpace(id) == "" {
		return domain.ErrInvalidOfferID
	}

	if err := s.repo.SetVisibility(ctx, id, !current); err != nil {
		s.logger.Error("Failed to toggle visibility", "offer_id", id, "error", err)
		return fmt.Errorf("toggle visibility: %w", err)
	}
	return nil
}

// UploadImage scales the image down, stores it under a fresh name and
// returns its public URL. Existing objects are never overwritten.
func (s *OfferService) UploadImage(ctx context.Context, offerID, filename string, data []byte) (string, error) {
	if strings.TrimSpace(offerID) == "" {
		return "", domain.ErrInvalidOfferID
	}
	if len(data) == 0 {
		return "", domain.ErrInvalidImage
	}
	if s.images == nil {
		return "", fmt.Errorf("upload image: no image store configured")
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if s.resizer != nil {
		resized, newExt, err := s.resizer.Resize(data, MaxImageWidth, MaxImageHeight, ImageQuality)
		if err != nil {
			return "", err
		}
		data, ext = resized, newExt
	}
	if ext == "" {
		ext = "bin"
	}

	path := fmt.Sprintf("%s_%d.%s", offerID, s.now().UnixMilli(), ext)

	err := s.images.Upload(ctx, path, data, domain.UploadOptions{
		ContentType:  contentTypeFor(ext),
		CacheControl: ImageCacheControl,
		Upsert:       false,
	})
	if err != nil {
		s.logger.Error("Image upload failed", "offer_id", offerID, "path", path, "error", err)
		return "", fmt.Errorf("upload image: %w", err)
	}

	url := s.images.PublicURL(path)
	s.logger.Info("Image uploaded", "offer_id", offerID, "path", path, "bytes", len(data))
	return url, nil
}

func contentTypeFor(ext string) string {
	switch ext {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
