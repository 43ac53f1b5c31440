package utils

import (
	"github.com/shopspring/decimal"
)

var decimalOneHundred = decimal.NewFromInt(100)

// RoundMoney rounds a monetary amount to 2 decimal places. Intermediate
// calculations keep full precision, so call this only when a value leaves
// the engine for display or persistence.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

func CalculateDiscountAmount(subTotal decimal.Decimal, discount decimal.Decimal, discountType string) decimal.Decimal {

	var discountAmount decimal.Decimal

	if discount.GreaterThan(decimal.Zero) {
		if discountType == "PERCENTAGE" {
			discountAmount = subTotal.Mul(discount).DivRound(decimalOneHundred, 8)
		} else {
			discountAmount = discount
		}
	} else {
		discountAmount = decimal.Zero
	}

	// A discount never exceeds the subtotal and never goes below zero.
	if discountAmount.GreaterThan(subTotal) {
		discountAmount = subTotal
	}
	if discountAmount.IsNegative() {
		discountAmount = decimal.Zero
	}

	return discountAmount
}

func CalculateTaxAmount(taxableBase decimal.Decimal, taxRate decimal.Decimal) decimal.Decimal {
	if taxRate.LessThanOrEqual(decimal.Zero) || taxableBase.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	// Tax-exclusive: (taxableBase / 100) * taxRate
	return taxableBase.DivRound(decimalOneHundred, 8).Mul(taxRate)
}

func CalculateDownPaymentAmount(total decimal.Decimal, downPayment decimal.Decimal, downPaymentType string) decimal.Decimal {

	var downPaymentAmount decimal.Decimal

	if downPayment.GreaterThan(decimal.Zero) {
		if downPaymentType == "PERCENTAGE" {
			// Percentage down payments apply to the post-tax total.
			downPaymentAmount = total.Mul(downPayment).DivRound(decimalOneHundred, 8)
		} else {
			downPaymentAmount = downPayment
		}
	} else {
		downPaymentAmount = decimal.Zero
	}

	if downPaymentAmount.GreaterThan(total) {
		downPaymentAmount = total
	}
	if downPaymentAmount.IsNegative() {
		downPaymentAmount = decimal.Zero
	}

	return downPaymentAmount
}
