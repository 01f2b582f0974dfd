package domain

import "github.com/shopspring/decimal"

// CartLineSnapshot is a cart entry joined with the live catalog product at
// checkout time.
type CartLineSnapshot struct {
	Product  ProductSnapshot `bson:"product" json:"product"`
	Quantity int             `bson:"quantity" json:"quantity"`
}

func (l CartLineSnapshot) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LinesTotal is the amount charged for lines: sum of quantity x unit price,
// no tax or shipping.
func LinesTotal(lines []CartLineSnapshot) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// MinorUnits converts a 2-decimal currency amount to integer cents.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
