package invoice

import (
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/google/uuid"
)

const (
	heading   = "Invoice"
	separator = "-----------------------------"

	headingSize = 26
	bodySize    = 14
	totalSize   = 20
)

type Line struct {
	Text     string
	FontSize float64
}

// Document is the printable content of an invoice. It only depends on the
// order, never on the live catalog.
type Document struct {
	OrderID   uuid.UUID
	CreatedAt time.Time
	Lines     []Line
}

// BuildDocument lays out one line per order item in stored order, framed by
// separators, followed by the total of quantity x unit price.
func BuildDocument(order *domain.Order) Document {
	lines := make([]Line, 0, len(order.Items)+4)
	lines = append(lines,
		Line{Text: heading, FontSize: headingSize},
		Line{Text: separator, FontSize: bodySize},
	)
	for _, item := range order.Items {
		lines = append(lines, Line{
			Text:     fmt.Sprintf("%s - %d x $%s", item.Product.Title, item.Quantity, item.Product.Price.String()),
			FontSize: bodySize,
		})
	}
	lines = append(lines,
		Line{Text: separator, FontSize: bodySize},
		Line{Text: "Total Price: $" + order.ComputeTotal().StringFixed(2), FontSize: totalSize},
	)

	return Document{OrderID: order.ID, CreatedAt: order.CreatedAt, Lines: lines}
}

func FileName(orderID uuid.UUID) string {
	return "invoice-" + orderID.String() + ".pdf"
}
