package catalog

import (
	"context"
	"log/slog"
	"strings"

	"github.com/fjod/go_shop/internal/domain"
)

// Service is the admin-facing side of the catalog: it validates product
// input before it reaches the store. Reads pass straight through.
type Service struct {
	store Store
	log   *slog.Logger
}

func NewService(store Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log}
}

func (s *Service) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	return s.store.ListProducts(ctx, filter)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.store.GetProduct(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, p *domain.Product) error {
	if err := validate(p); err != nil {
		return err
	}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "product created", "product_id", p.ID, "user_id", p.UserID)
	return nil
}

func (s *Service) UpdateProduct(ctx context.Context, p *domain.Product) error {
	if err := validate(p); err != nil {
		return err
	}
	if err := s.store.UpdateProduct(ctx, p); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "product updated", "product_id", p.ID, "user_id", p.UserID)
	return nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64, userID string) error {
	if err := s.store.DeleteProduct(ctx, id, userID); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "product deleted", "product_id", id, "user_id", userID)
	return nil
}

func validate(p *domain.Product) error {
	p.Title = strings.TrimSpace(p.Title)
	if len(p.Title) < 3 {
		return &domain.ValidationError{Field: "title", Reason: "must be at least 3 characters"}
	}
	if !p.Price.IsPositive() {
		return &domain.ValidationError{Field: "price", Reason: "must be greater than 0"}
	}
	if p.Price.Exponent() < -2 {
		return &domain.ValidationError{Field: "price", Reason: "at most 2 decimal places"}
	}
	if p.UserID == "" {
		return &domain.ValidationError{Field: "user_id", Reason: "owner is required"}
	}
	return nil
}
