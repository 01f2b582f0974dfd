package invoice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/google/uuid"
)

// OrderReader is the ownership-checked order lookup.
type OrderReader interface {
	GetByID(ctx context.Context, orderID uuid.UUID, requestingUserID string) (*domain.Order, error)
}

type RenderObserver interface {
	InvoiceRendered(trigger string)
}

type Service struct {
	orders   OrderReader
	sink     Sink
	renderer Renderer
	observer RenderObserver
	log      *slog.Logger
}

func NewService(orders OrderReader, sink Sink, renderer Renderer, observer RenderObserver, log *slog.Logger) *Service {
	return &Service{
		orders:   orders,
		sink:     sink,
		renderer: renderer,
		observer: observer,
		log:      log,
	}
}

// Stream renders the invoice of orderID for its owner into the sink and w at
// once. Lookup and ownership are checked before the sink is touched, so a
// refused request never leaves a file behind. A failed render only discards
// its own draft; an invoice stored by another render stays in place.
func (s *Service) Stream(ctx context.Context, orderID uuid.UUID, userID string, w io.Writer) error {
	order, err := s.orders.GetByID(ctx, orderID, userID)
	if err != nil {
		return err
	}
	if err := s.write(order, w); err != nil {
		s.log.ErrorContext(ctx, "invoice stream failed", "order_id", orderID, "error", err)
		return err
	}
	s.rendered("request")
	return nil
}

// Prerender stores the invoice of an already loaded order without streaming
// it anywhere.
func (s *Service) Prerender(ctx context.Context, order *domain.Order) error {
	if err := s.write(order, io.Discard); err != nil {
		s.log.ErrorContext(ctx, "invoice prerender failed", "order_id", order.ID, "error", err)
		return err
	}
	s.rendered("event")
	return nil
}

func (s *Service) write(order *domain.Order, w io.Writer) (err error) {
	name := FileName(order.ID)
	draft, err := s.sink.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer func() {
		if err != nil {
			if abortErr := draft.Abort(); abortErr != nil {
				err = errors.Join(err, fmt.Errorf("discard partial %s: %w", name, abortErr))
			}
		}
	}()

	if err := s.renderer.Render(BuildDocument(order), io.MultiWriter(draft, w)); err != nil {
		return err
	}
	if err := draft.Commit(); err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}
	return nil
}

func (s *Service) rendered(trigger string) {
	if s.observer != nil {
		s.observer.InvoiceRendered(trigger)
	}
}
