package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/walletapp/wallet-core/internal/barcode"
	"github.com/walletapp/wallet-core/internal/domain"
	"github.com/walletapp/wallet-core/internal/errors"
	"github.com/walletapp/wallet-core/internal/validation"
)

// CardRepository is the persistence the card service needs.
type CardRepository interface {
	GetAll(ctx context.Context) ([]*domain.LoyaltyCard, error)
	GetFavorites(ctx context.Context) ([]*domain.LoyaltyCard, error)
	GetMostUsed(ctx context.Context, limit int) ([]*domain.LoyaltyCard, error)
	GetByID(ctx context.Context, id string) (*domain.LoyaltyCard, error)
	Insert(ctx context.Context, c *domain.LoyaltyCard) error
	Update(ctx context.Context, c *domain.LoyaltyCard) (int64, error)
	Delete(ctx context.Context, id string) (int64, error)
	Count(ctx context.Context) (int, error)
}

// WatchSyncer pushes the card list to a paired watch.
// Delivery is best effort; the service never waits on it.
type WatchSyncer interface {
	SyncCards(ctx context.Context, cards []*domain.LoyaltyCard) error
}

// NoopWatchSyncer is used when no watch is paired.
type NoopWatchSyncer struct{}

// SyncCards is a no-op.
func (NoopWatchSyncer) SyncCards(context.Context, []*domain.LoyaltyCard) error { return nil }

// BrandCatalog answers whether a brand id exists in the bundled catalogue.
type BrandCatalog interface {
	HasBrand(brandID string) bool
}

// NewCardInput is what the add-card flow collects.
type NewCardInput struct {
	Name    string
	Barcode string
	// BarcodeFormat comes from the camera scanner. Empty means the value
	// was typed and the format is inferred.
	BarcodeFormat domain.BarcodeFormat
	BrandID       *string
	Color         domain.CardColor // empty means grey
	IsFavorite    bool
}

// EditCardInput replaces the user-editable fields of a card.
type EditCardInput struct {
	Name          string
	Barcode       string
	BarcodeFormat domain.BarcodeFormat // empty means infer from Barcode
	BrandID       *string
	Color         domain.CardColor
	IsFavorite    bool
}

// CardService implements the add, edit, delete and display flows on top
// of the repository, which itself does no validation.
type CardService struct {
	repo      CardRepository
	validator *validation.Validator
	syncer    WatchSyncer
	brands    BrandCatalog
	logger    *slog.Logger
	now       func() time.Time
}

// NewCardService creates a new card service.
func NewCardService(repo CardRepository, validator *validation.Validator, logger *slog.Logger) *CardService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CardService{
		repo:      repo,
		validator: validator,
		syncer:    NoopWatchSyncer{},
		logger:    logger,
		now:       time.Now,
	}
}

// SetWatchSyncer sets the watch bridge notified after every change.
func (s *CardService) SetWatchSyncer(syncer WatchSyncer) {
	s.syncer = syncer
}

// SetBrandCatalog enables brand id checks on add and edit.
func (s *CardService) SetBrandCatalog(brands BrandCatalog) {
	s.brands = brands
}

// ListCards returns all cards, newest first.
func (s *CardService) ListCards(ctx context.Context) ([]*domain.LoyaltyCard, error) {
	return s.repo.GetAll(ctx)
}

// FavoriteCards returns favorite cards, newest first.
func (s *CardService) FavoriteCards(ctx context.Context) ([]*domain.LoyaltyCard, error) {
	return s.repo.GetFavorites(ctx)
}

// MostUsedCards returns up to limit cards by usage.
func (s *CardService) MostUsedCards(ctx context.Context, limit int) ([]*domain.LoyaltyCard, error) {
	if limit <= 0 {
		return nil, errors.Validationf("limit must be positive, got %d", limit)
	}
	return s.repo.GetMostUsed(ctx, limit)
}

// CountCards returns the number of cards.
func (s *CardService) CountCards(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// GetCard returns a card or errors.ErrNotFound.
func (s *CardService) GetCard(ctx context.Context, id string) (*domain.LoyaltyCard, error) {
	card, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, errors.NotFoundf("card %s not found", id)
	}
	return card, nil
}

// AddCard creates a card with a fresh id and timestamps.
func (s *CardService) AddCard(ctx context.Context, in NewCardInput) (*domain.LoyaltyCard, error) {
	code := strings.TrimSpace(in.Barcode)
	format := in.BarcodeFormat
	if format == "" {
		format = barcode.InferFormat(code)
	}
	color := in.Color
	if color == "" {
		color = domain.DefaultCardColor
	}

	now := domain.Timestamp(s.now())
	card := &domain.LoyaltyCard{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(in.Name),
		Barcode:       code,
		BarcodeFormat: format,
		BrandID:       in.BrandID,
		Color:         color,
		IsFavorite:    in.IsFavorite,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.check(card); err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, card); err != nil {
		return nil, err
	}

	s.logger.Info("card added",
		"card_id", card.ID,
		"format", card.BarcodeFormat,
		"custom", card.IsCustom(),
	)
	s.syncWatch(ctx)

	return card, nil
}

// EditCard replaces the editable fields of an existing card.
// ID and CreatedAt are preserved, UpdatedAt is refreshed.
func (s *CardService) EditCard(ctx context.Context, id string, in EditCardInput) (*domain.LoyaltyCard, error) {
	card, err := s.GetCard(ctx, id)
	if err != nil {
		return nil, err
	}

	card.Name = strings.TrimSpace(in.Name)
	card.Barcode = strings.TrimSpace(in.Barcode)
	card.BarcodeFormat = in.BarcodeFormat
	if card.BarcodeFormat == "" {
		card.BarcodeFormat = barcode.InferFormat(card.Barcode)
	}
	card.BrandID = in.BrandID
	card.Color = in.Color
	if card.Color == "" {
		card.Color = domain.DefaultCardColor
	}
	card.IsFavorite = in.IsFavorite
	card.Touch(s.now())

	if err := s.check(card); err != nil {
		return nil, err
	}
	if err := s.update(ctx, card); err != nil {
		return nil, err
	}

	s.logger.Info("card edited", "card_id", card.ID)
	s.syncWatch(ctx)

	return card, nil
}

// SetFavorite flags or unflags a card.
func (s *CardService) SetFavorite(ctx context.Context, id string, favorite bool) (*domain.LoyaltyCard, error) {
	card, err := s.GetCard(ctx, id)
	if err != nil {
		return nil, err
	}
	if card.IsFavorite == favorite {
		return card, nil
	}

	card.IsFavorite = favorite
	card.Touch(s.now())
	if err := s.update(ctx, card); err != nil {
		return nil, err
	}

	s.syncWatch(ctx)
	return card, nil
}

// RecordUse counts a display of the card.
func (s *CardService) RecordUse(ctx context.Context, id string) (*domain.LoyaltyCard, error) {
	card, err := s.GetCard(ctx, id)
	if err != nil {
		return nil, err
	}

	card.MarkUsed(s.now())
	if err := s.update(ctx, card); err != nil {
		return nil, err
	}

	s.logger.Debug("card used", "card_id", card.ID, "usage_count", card.UsageCount)
	return card, nil
}

// DeleteCard removes a card, returning errors.ErrNotFound if it did not exist.
func (s *CardService) DeleteCard(ctx context.Context, id string) error {
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.NotFoundf("card %s not found", id)
	}

	s.logger.Info("card deleted", "card_id", id)
	s.syncWatch(ctx)
	return nil
}

// update writes card and reports a concurrent delete as not found.
func (s *CardService) update(ctx context.Context, card *domain.LoyaltyCard) error {
	affected, err := s.repo.Update(ctx, card)
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.NotFoundf("card %s not found", card.ID)
	}
	return nil
}

func (s *CardService) check(card *domain.LoyaltyCard) error {
	if err := s.validator.Validate(card); err != nil {
		return err
	}
	if card.BrandID != nil && s.brands != nil && !s.brands.HasBrand(*card.BrandID) {
		return errors.ValidationWithDetails("validation failed: brand_id is unknown",
			map[string]string{"brand_id": "is unknown"})
	}
	return nil
}

// syncWatch hands the current card list to the watch bridge without waiting.
func (s *CardService) syncWatch(ctx context.Context) {
	if _, ok := s.syncer.(NoopWatchSyncer); ok {
		return
	}

	cards, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.Warn("watch sync skipped", "error", err)
		return
	}

	syncer := s.syncer
	go func() {
		if err := syncer.SyncCards(context.WithoutCancel(ctx), cards); err != nil {
			s.logger.Warn("watch sync failed", "cards", len(cards), "error", err)
		}
	}()
}
