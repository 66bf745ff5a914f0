package enums

import "fmt"

// ModifierKind distinguishes automatic fees from buyer-invoked coupons.
type ModifierKind string

const (
	ModifierKindFee    ModifierKind = "fee"
	ModifierKindCoupon ModifierKind = "coupon"
)

func (k ModifierKind) IsValid() bool {
	return k == ModifierKindFee || k == ModifierKindCoupon
}

// ParseModifierKind converts raw input into a ModifierKind.
func ParseModifierKind(value string) (ModifierKind, error) {
	k := ModifierKind(value)
	if !k.IsValid() {
		return "", fmt.Errorf("invalid modifier kind %q", value)
	}
	return k, nil
}

// ModifierSubType selects between a fixed amount and a percentage.
type ModifierSubType string

const (
	ModifierSubTypeFlat    ModifierSubType = "flat"
	ModifierSubTypePercent ModifierSubType = "percent"
)

func (s ModifierSubType) IsValid() bool {
	return s == ModifierSubTypeFlat || s == ModifierSubTypePercent
}

// ParseModifierSubType converts raw input into a ModifierSubType.
func ParseModifierSubType(value string) (ModifierSubType, error) {
	s := ModifierSubType(value)
	if !s.IsValid() {
		return "", fmt.Errorf("invalid modifier sub type %q", value)
	}
	return s, nil
}

// FeeScope controls whether a flat fee applies once per order or once per ticket unit.
type FeeScope string

const (
	FeeScopeAll FeeScope = "all"
	FeeScopePer FeeScope = "per"
)

func (s FeeScope) IsValid() bool {
	return s == FeeScopeAll || s == FeeScopePer
}

// CouponBase controls whether a coupon discounts tickets only or tickets plus fees.
type CouponBase string

const (
	CouponBaseTicketsOnly CouponBase = "tickets_only"
	CouponBaseTotalOrder  CouponBase = "total_order"
)

func (b CouponBase) IsValid() bool {
	return b == CouponBaseTicketsOnly || b == CouponBaseTotalOrder
}
