// Package totals computes tax and discount totals for invoices, bills, credit
// notes and their recurring templates. It performs no I/O.
package totals

import (
	"fmt"

	"github.com/shopspring/decimal"

	"khata/internal/domain"
)

// Money amounts are rounded to paise.
const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Input is everything the calculator reads.
type Input struct {
	Kind          domain.DocumentKind
	Items         []domain.DocumentItem
	DiscountMode  domain.DiscountMode
	DiscountValue decimal.Decimal
	TDSRate       decimal.Decimal
	AmountPaid    decimal.Decimal
}

// ItemTotals holds the computed amounts of one item.
type ItemTotals struct {
	Amount decimal.Decimal `json:"amount"`
	CGST   decimal.Decimal `json:"cgst"`
	SGST   decimal.Decimal `json:"sgst"`
	IGST   decimal.Decimal `json:"igst"`
	Cess   decimal.Decimal `json:"cess"`
	Tax    decimal.Decimal `json:"tax"`
	Total  decimal.Decimal `json:"total"`
}

// Result is the computed totals of a document.
type Result struct {
	Items      []ItemTotals    `json:"items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Discount   decimal.Decimal `json:"discount"`
	Taxable    decimal.Decimal `json:"taxable"`
	CGST       decimal.Decimal `json:"cgst"`
	SGST       decimal.Decimal `json:"sgst"`
	IGST       decimal.Decimal `json:"igst"`
	Cess       decimal.Decimal `json:"cess"`
	TotalTax   decimal.Decimal `json:"total_tax"`
	TDS        decimal.Decimal `json:"tds"`
	GrandTotal decimal.Decimal `json:"grand_total"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	BalanceDue decimal.Decimal `json:"balance_due"`
}

// Compute returns the totals of in. It never mutates in.
func Compute(in Input) (Result, error) {
	res := Result{Items: make([]ItemTotals, 0, len(in.Items))}

	for i, item := range in.Items {
		it, err := computeItem(item)
		if err != nil {
			return Result{}, fmt.Errorf("item %d: %w", i+1, err)
		}
		res.Items = append(res.Items, it)
		res.Subtotal = res.Subtotal.Add(it.Amount)
		res.CGST = res.CGST.Add(it.CGST)
		res.SGST = res.SGST.Add(it.SGST)
		res.IGST = res.IGST.Add(it.IGST)
		res.Cess = res.Cess.Add(it.Cess)
	}

	discount, err := documentDiscount(res.Subtotal, in.DiscountMode, in.DiscountValue)
	if err != nil {
		return Result{}, err
	}
	res.Discount = discount
	res.Taxable = res.Subtotal.Sub(discount)
	res.TotalTax = res.CGST.Add(res.SGST).Add(res.IGST).Add(res.Cess)
	res.GrandTotal = res.Taxable.Add(res.TotalTax)

	if in.TDSRate.IsNegative() || in.TDSRate.GreaterThan(hundred) {
		return Result{}, fmt.Errorf("tds rate %s: %w", in.TDSRate, domain.ErrInvalidAmount)
	}
	if in.Kind == domain.DocumentKindBill && in.TDSRate.IsPositive() {
		res.TDS = percentOf(res.Taxable, in.TDSRate)
		res.GrandTotal = res.GrandTotal.Sub(res.TDS)
	}

	if in.AmountPaid.IsNegative() {
		return Result{}, fmt.Errorf("amount paid %s: %w", in.AmountPaid, domain.ErrInvalidAmount)
	}
	res.AmountPaid = in.AmountPaid
	res.BalanceDue = BalanceDue(res.GrandTotal, in.AmountPaid)
	return res, nil
}

// BalanceDue is grand total minus amount paid.
func BalanceDue(grandTotal, paid decimal.Decimal) decimal.Decimal {
	return grandTotal.Sub(paid)
}

func computeItem(item domain.DocumentItem) (ItemTotals, error) {
	if item.Quantity.IsNegative() || item.Rate.IsNegative() || item.Discount.IsNegative() {
		return ItemTotals{}, domain.ErrInvalidAmount
	}
	for _, r := range []decimal.Decimal{item.CGSTRate, item.SGSTRate, item.IGSTRate, item.CessRate} {
		if r.IsNegative() {
			return ItemTotals{}, domain.ErrInvalidAmount
		}
	}

	gross := item.Quantity.Mul(item.Rate)
	if item.Discount.GreaterThan(gross) {
		return ItemTotals{}, fmt.Errorf("discount exceeds line amount: %w", domain.ErrInvalidAmount)
	}

	it := ItemTotals{Amount: gross.Sub(item.Discount).Round(moneyPlaces)}
	it.CGST = percentOf(it.Amount, item.CGSTRate)
	it.SGST = percentOf(it.Amount, item.SGSTRate)
	it.IGST = percentOf(it.Amount, item.IGSTRate)
	it.Cess = percentOf(it.Amount, item.CessRate)
	it.Tax = it.CGST.Add(it.SGST).Add(it.IGST).Add(it.Cess)
	it.Total = it.Amount.Add(it.Tax)
	return it, nil
}

func documentDiscount(subtotal decimal.Decimal, mode domain.DiscountMode, value decimal.Decimal) (decimal.Decimal, error) {
	if value.IsNegative() {
		return decimal.Zero, fmt.Errorf("discount %s: %w", value, domain.ErrInvalidAmount)
	}
	var discount decimal.Decimal
	switch mode {
	case domain.DiscountModeNone:
		return decimal.Zero, nil
	case domain.DiscountModePercent:
		if value.GreaterThan(hundred) {
			return decimal.Zero, fmt.Errorf("discount percent %s: %w", value, domain.ErrInvalidAmount)
		}
		discount = percentOf(subtotal, value)
	case domain.DiscountModeFixed:
		discount = value.Round(moneyPlaces)
	default:
		return decimal.Zero, fmt.Errorf("discount mode %q: %w", mode, domain.ErrInvalidInput)
	}
	if discount.GreaterThan(subtotal) {
		return decimal.Zero, fmt.Errorf("discount exceeds subtotal: %w", domain.ErrInvalidAmount)
	}
	return discount, nil
}

func percentOf(amount, rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() {
		return decimal.Zero
	}
	return amount.Mul(rate).Div(hundred).Round(moneyPlaces)
}
