package invoice

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, order *domain.Order) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, PDFRenderer{}.Render(BuildDocument(order), &buf))
	return buf.Bytes()
}

func TestPDFRenderer_Deterministic(t *testing.T) {
	first := render(t, scenarioOrder())
	time.Sleep(1100 * time.Millisecond)
	second := render(t, scenarioOrder())

	assert.True(t, bytes.HasPrefix(first, []byte("%PDF-")))
	assert.Equal(t, first, second)
}

func TestPDFRenderer_DependsOnOrder(t *testing.T) {
	order := scenarioOrder()
	changed := scenarioOrder()
	changed.Items[0].Quantity = 3

	assert.NotEqual(t, render(t, order), render(t, changed))
}

func TestPDFRenderer_BreaksLongInvoicesIntoPages(t *testing.T) {
	order := scenarioOrder()
	order.Items = nil
	for i := 0; i < 120; i++ {
		order.Items = append(order.Items, domain.OrderItem{
			Quantity: 1,
			Product:  domain.ProductSnapshot{Title: fmt.Sprintf("Item %d", i), Price: decimal.NewFromInt(1)},
		})
	}

	out := render(t, order)
	assert.Regexp(t, `/Count [2-9]`, string(out))
}
