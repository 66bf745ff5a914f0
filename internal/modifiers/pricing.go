package modifiers

import (
	"bytes"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/boxoffice-backend/pkg/db/models"
	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	"github.com/angelmondragon/boxoffice-backend/pkg/money"
)

// TicketLine is one ticket entry of a cart with its unit price snapshot.
type TicketLine struct {
	TicketID  uuid.UUID   `json:"ticketId"`
	EventID   uuid.UUID   `json:"eventId"`
	Name      string      `json:"name"`
	Quantity  int         `json:"quantity"`
	UnitPrice money.Money `json:"unitPrice"`
}

// Line is a priced cart line. Coupon amounts are negative.
type Line struct {
	Type       enums.OrderItemType `json:"type"`
	TicketID   *uuid.UUID          `json:"ticketId,omitempty"`
	ModifierID *uuid.UUID          `json:"modifierId,omitempty"`
	Name       string              `json:"name"`
	Quantity   int                 `json:"quantity"`
	UnitPrice  money.Money         `json:"unitPrice"`
	Amount     money.Money         `json:"amount"`
}

// PricedCart is the output of Price. DiscountTotal is a positive magnitude.
type PricedCart struct {
	Lines         []Line      `json:"lines"`
	Subtotal      money.Money `json:"subtotal"`
	FeesTotal     money.Money `json:"feesTotal"`
	DiscountTotal money.Money `json:"discountTotal"`
	Total         money.Money `json:"total"`
}

// TicketQuantity sums the units across ticket lines.
func (p PricedCart) TicketQuantity() int {
	total := 0
	for _, line := range p.Lines {
		if line.Type == enums.OrderItemTicket {
			total += line.Quantity
		}
	}
	return total
}

// IsEmpty reports whether the cart has no ticket lines.
func (p PricedCart) IsEmpty() bool {
	return p.TicketQuantity() == 0
}

// Price computes subtotal, fees, coupons and total for a cart.
//
// Fees run first, sorted by priority then id, so that total_order coupons see
// the full fee amount in their base. Coupons never drive the total below
// zero. Price has no side effects and reads the clock only through now, so
// repeated calls with the same input return identical output.
func Price(tickets []TicketLine, fees, coupons []models.OrderModifier, now time.Time) PricedCart {
	out := PricedCart{
		Subtotal:      money.Zero(),
		FeesTotal:     money.Zero(),
		DiscountTotal: money.Zero(),
	}

	for _, t := range tickets {
		if t.Quantity <= 0 {
			continue
		}
		id := t.TicketID
		amount := t.UnitPrice.Multiply(t.Quantity)
		out.Lines = append(out.Lines, Line{
			Type:      enums.OrderItemTicket,
			TicketID:  &id,
			Name:      t.Name,
			Quantity:  t.Quantity,
			UnitPrice: t.UnitPrice,
			Amount:    amount,
		})
		out.Subtotal = out.Subtotal.Add(amount)
	}

	for _, fee := range eligible(fees, enums.ModifierKindFee, tickets, now) {
		units, base := scopeOf(fee, tickets)
		amount, quantity := feeAmount(fee, units, base)
		out.Lines = append(out.Lines, modifierLine(enums.OrderItemFee, fee, quantity, amount))
		out.FeesTotal = out.FeesTotal.Add(amount)
	}

	gross := out.Subtotal.Add(out.FeesTotal)
	for _, coupon := range eligible(coupons, enums.ModifierKindCoupon, tickets, now) {
		_, base := scopeOf(coupon, tickets)
		if coupon.CouponBase != nil && *coupon.CouponBase == enums.CouponBaseTotalOrder {
			base = base.Add(out.FeesTotal)
		}
		amount := couponAmount(coupon, base)
		remaining := gross.Sub(out.DiscountTotal)
		amount = money.Max(money.Min(amount, remaining), money.Zero())
		out.Lines = append(out.Lines, modifierLine(enums.OrderItemCoupon, coupon, 1, amount.Negate()))
		out.DiscountTotal = out.DiscountTotal.Add(amount)
	}

	out.Total = money.Max(gross.Sub(out.DiscountTotal), money.Zero())
	return out
}

func feeAmount(fee models.OrderModifier, units int, base money.Money) (money.Money, int) {
	if fee.SubType == enums.ModifierSubTypePercent {
		return money.PercentageOf(base, fee.RawAmount), 1
	}
	flat := money.New(fee.RawAmount)
	if fee.FeeScope != nil && *fee.FeeScope == enums.FeeScopePer {
		return flat.Multiply(units), units
	}
	return flat, 1
}

func couponAmount(coupon models.OrderModifier, base money.Money) money.Money {
	if coupon.SubType == enums.ModifierSubTypePercent {
		return money.PercentageOf(base, coupon.RawAmount)
	}
	return money.Min(money.New(coupon.RawAmount), base)
}

// scopeOf returns the ticket units and ticket subtotal a modifier applies to.
// Modifiers without an event apply to the whole cart.
func scopeOf(mod models.OrderModifier, tickets []TicketLine) (int, money.Money) {
	units := 0
	base := money.Zero()
	for _, t := range tickets {
		if t.Quantity <= 0 {
			continue
		}
		if mod.EventID != nil && *mod.EventID != t.EventID {
			continue
		}
		units += t.Quantity
		base = base.Add(t.UnitPrice.Multiply(t.Quantity))
	}
	return units, base
}

func modifierLine(itemType enums.OrderItemType, mod models.OrderModifier, quantity int, amount money.Money) Line {
	id := mod.ID
	return Line{
		Type:       itemType,
		ModifierID: &id,
		Name:       mod.DisplayName,
		Quantity:   quantity,
		UnitPrice:  money.New(mod.RawAmount),
		Amount:     amount,
	}
}

// eligible filters by kind, activity window and event scope, then sorts by
// priority with ties broken by id.
func eligible(mods []models.OrderModifier, kind enums.ModifierKind, tickets []TicketLine, now time.Time) []models.OrderModifier {
	out := make([]models.OrderModifier, 0, len(mods))
	seen := make(map[uuid.UUID]struct{}, len(mods))
	for _, mod := range mods {
		if mod.Kind != kind || !IsLive(mod, now) {
			continue
		}
		if _, dup := seen[mod.ID]; dup {
			continue
		}
		if units, _ := scopeOf(mod, tickets); units == 0 {
			continue
		}
		seen[mod.ID] = struct{}{}
		out = append(out, mod)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out
}

// IsLive reports whether a modifier is active and inside its validity window.
func IsLive(mod models.OrderModifier, now time.Time) bool {
	if !mod.Active {
		return false
	}
	if mod.StartsAt != nil && now.Before(*mod.StartsAt) {
		return false
	}
	if mod.EndsAt != nil && !now.Before(*mod.EndsAt) {
		return false
	}
	return true
}
