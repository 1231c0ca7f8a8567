package services

import (
	"math"

	"ordering/internal/core/domain/model/order"
)

// Charges is the service-fee/discount breakdown attached to the finance
// collaborator's new-order notification.
type Charges struct {
	Subtotal   float64 `json:"subtotal"`
	ServiceFee float64 `json:"service_fee"`
	Discount   float64 `json:"discount"`
	Total      float64 `json:"total"`
}

// ChargeCalculator is a domain service computing the charge breakdown for a
// paid order: a flat-rate service fee on dine-in orders and a loyalty
// discount when the customer carries a loyalty reference.
type ChargeCalculator struct {
	serviceFeeRate  float64
	loyaltyDiscount float64
}

// NewChargeCalculator creates a calculator with the given service fee rate
// applied to dine-in orders and discount rate applied to loyalty customers.
// Rates are fractions, e.g. 0.1 for 10%.
func NewChargeCalculator(serviceFeeRate, loyaltyDiscount float64) ChargeCalculator {
	return ChargeCalculator{
		serviceFeeRate:  serviceFeeRate,
		loyaltyDiscount: loyaltyDiscount,
	}
}

// Calculate returns the charge breakdown for the order snapshot.
func (c ChargeCalculator) Calculate(s order.Snapshot) Charges {
	subtotal := s.Total

	var fee float64
	if s.Fulfillment == order.DineIn.String() {
		fee = round2(subtotal * c.serviceFeeRate)
	}

	var discount float64
	if s.Customer != nil && s.Customer.LoyaltyRef != "" {
		discount = round2(subtotal * c.loyaltyDiscount)
	}

	return Charges{
		Subtotal:   subtotal,
		ServiceFee: fee,
		Discount:   discount,
		Total:      round2(subtotal + fee - discount),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
