package totals_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"khata/internal/domain"
	"khata/internal/totals"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func intraStateItems() []domain.DocumentItem {
	return []domain.DocumentItem{
		{Description: "Consulting", Quantity: d("10"), Rate: d("100"), CGSTRate: d("9"), SGSTRate: d("9")},
		{Description: "Travel", Quantity: d("1"), Rate: d("250.50"), Discount: d("0.50"), CGSTRate: d("2.5"), SGSTRate: d("2.5"), CessRate: d("1")},
	}
}

func TestCompute_IntraStateInvoice(t *testing.T) {
	res, err := totals.Compute(totals.Input{Kind: domain.DocumentKindInvoice, Items: intraStateItems()})
	require.NoError(t, err)

	require.Len(t, res.Items, 2)
	assert.Equal(t, "1000.00", res.Items[0].Amount.StringFixed(2))
	assert.Equal(t, "90.00", res.Items[0].CGST.StringFixed(2))
	assert.Equal(t, "90.00", res.Items[0].SGST.StringFixed(2))
	assert.Equal(t, "1180.00", res.Items[0].Total.StringFixed(2))

	assert.Equal(t, "250.00", res.Items[1].Amount.StringFixed(2))
	assert.Equal(t, "6.25", res.Items[1].CGST.StringFixed(2))
	assert.Equal(t, "2.50", res.Items[1].Cess.StringFixed(2))

	assert.Equal(t, "1250.00", res.Subtotal.StringFixed(2))
	assert.Equal(t, "1250.00", res.Taxable.StringFixed(2))
	assert.Equal(t, "96.25", res.CGST.StringFixed(2))
	assert.Equal(t, "96.25", res.SGST.StringFixed(2))
	assert.Equal(t, "195.00", res.TotalTax.StringFixed(2))
	assert.Equal(t, "1445.00", res.GrandTotal.StringFixed(2))
	assert.Equal(t, "1445.00", res.BalanceDue.StringFixed(2))
}

func TestCompute_PercentDiscount(t *testing.T) {
	res, err := totals.Compute(totals.Input{
		Kind:          domain.DocumentKindInvoice,
		Items:         []domain.DocumentItem{{Quantity: d("2"), Rate: d("500"), IGSTRate: d("18")}},
		DiscountMode:  domain.DiscountModePercent,
		DiscountValue: d("10"),
		AmountPaid:    d("500"),
	})
	require.NoError(t, err)

	assert.Equal(t, "1000.00", res.Subtotal.StringFixed(2))
	assert.Equal(t, "100.00", res.Discount.StringFixed(2))
	assert.Equal(t, "900.00", res.Taxable.StringFixed(2))
	assert.Equal(t, "180.00", res.IGST.StringFixed(2))
	assert.Equal(t, "1080.00", res.GrandTotal.StringFixed(2))
	assert.Equal(t, "580.00", res.BalanceDue.StringFixed(2))
}

func TestCompute_FixedDiscount(t *testing.T) {
	res, err := totals.Compute(totals.Input{
		Items:         []domain.DocumentItem{{Quantity: d("1"), Rate: d("1000")}},
		DiscountMode:  domain.DiscountModeFixed,
		DiscountValue: d("150"),
	})
	require.NoError(t, err)
	assert.Equal(t, "850.00", res.Taxable.StringFixed(2))
	assert.Equal(t, "850.00", res.GrandTotal.StringFixed(2))
}

func TestCompute_BillSubtractsTDS(t *testing.T) {
	res, err := totals.Compute(totals.Input{
		Kind:    domain.DocumentKindBill,
		Items:   []domain.DocumentItem{{Quantity: d("1"), Rate: d("10000"), CGSTRate: d("9"), SGSTRate: d("9")}},
		TDSRate: d("10"),
	})
	require.NoError(t, err)
	assert.Equal(t, "1000.00", res.TDS.StringFixed(2))
	assert.Equal(t, "10800.00", res.GrandTotal.StringFixed(2))
}

func TestCompute_TDSIgnoredForInvoices(t *testing.T) {
	res, err := totals.Compute(totals.Input{
		Kind:    domain.DocumentKindInvoice,
		Items:   []domain.DocumentItem{{Quantity: d("1"), Rate: d("100")}},
		TDSRate: d("10"),
	})
	require.NoError(t, err)
	assert.True(t, res.TDS.IsZero())
	assert.Equal(t, "100.00", res.GrandTotal.StringFixed(2))
}

func TestCompute_AllComponentsTogetherArePermitted(t *testing.T) {
	res, err := totals.Compute(totals.Input{
		Items: []domain.DocumentItem{{Quantity: d("1"), Rate: d("100"), CGSTRate: d("9"), SGSTRate: d("9"), IGSTRate: d("18"), CessRate: d("1")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "37.00", res.TotalTax.StringFixed(2))
}

func TestCompute_IdempotentAndOrderIndependent(t *testing.T) {
	items := intraStateItems()
	in := totals.Input{Kind: domain.DocumentKindInvoice, Items: items, DiscountMode: domain.DiscountModePercent, DiscountValue: d("5")}

	first, err := totals.Compute(in)
	require.NoError(t, err)
	second, err := totals.Compute(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	reversed := []domain.DocumentItem{items[1], items[0]}
	swapped, err := totals.Compute(totals.Input{Kind: in.Kind, Items: reversed, DiscountMode: in.DiscountMode, DiscountValue: in.DiscountValue})
	require.NoError(t, err)
	assert.True(t, first.GrandTotal.Equal(swapped.GrandTotal))
	assert.True(t, first.TotalTax.Equal(swapped.TotalTax))
	assert.True(t, first.Taxable.Equal(swapped.Taxable))

	assert.Equal(t, "1000", items[0].Rate.String(), "input must not be mutated")
}

func TestCompute_RejectsInvalidAmounts(t *testing.T) {
	cases := map[string]totals.Input{
		"negative quantity": {Items: []domain.DocumentItem{{Quantity: d("-1"), Rate: d("10")}}},
		"negative rate":     {Items: []domain.DocumentItem{{Quantity: d("1"), Rate: d("-10")}}},
		"negative tax":      {Items: []domain.DocumentItem{{Quantity: d("1"), Rate: d("10"), CGSTRate: d("-9")}}},
		"item discount":     {Items: []domain.DocumentItem{{Quantity: d("1"), Rate: d("10"), Discount: d("11")}}},
		"percent over 100":  {Items: []domain.DocumentItem{{Quantity: d("1"), Rate: d("10")}}, DiscountMode: domain.DiscountModePercent, DiscountValue: d("101")},
		"fixed over total":  {Items: []domain.DocumentItem{{Quantity: d("1"), Rate: d("10")}}, DiscountMode: domain.DiscountModeFixed, DiscountValue: d("11")},
		"negative paid":     {Items: []domain.DocumentItem{{Quantity: d("1"), Rate: d("10")}}, AmountPaid: d("-1")},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := totals.Compute(in)
			assert.ErrorIs(t, err, domain.ErrInvalidAmount)
		})
	}
}

func TestCompute_UnknownDiscountMode(t *testing.T) {
	_, err := totals.Compute(totals.Input{
		Items:         []domain.DocumentItem{{Quantity: d("1"), Rate: d("10")}},
		DiscountMode:  "bogus",
		DiscountValue: d("1"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCompute_EmptyDocument(t *testing.T) {
	res, err := totals.Compute(totals.Input{})
	require.NoError(t, err)
	assert.True(t, res.GrandTotal.IsZero())
	assert.Empty(t, res.Items)
}

func TestCompute_ItemDiscountReducesTaxBase(t *testing.T) {
	res, err := totals.Compute(totals.Input{
		Kind: domain.DocumentKindInvoice,
		Items: []domain.DocumentItem{
			{Quantity: d("2"), Rate: d("100"), Discount: d("20"), CGSTRate: d("9"), SGSTRate: d("9")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "180.00", res.Items[0].Amount.StringFixed(2))
	assert.Equal(t, "16.20", res.Items[0].CGST.StringFixed(2))
	assert.Equal(t, "212.40", res.Items[0].Total.StringFixed(2))
	assert.Equal(t, "180.00", res.Subtotal.StringFixed(2))
	assert.Equal(t, "212.40", res.GrandTotal.StringFixed(2))
}
