package modifiers

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/boxoffice-backend/pkg/db/models"
	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	"github.com/angelmondragon/boxoffice-backend/pkg/money"
)

var pricingNow = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func ticketLine(price string, qty int) TicketLine {
	return TicketLine{
		TicketID:  uuid.New(),
		EventID:   uuid.New(),
		Name:      "General Admission",
		Quantity:  qty,
		UnitPrice: money.MustParse(price),
	}
}

func fee(sub enums.ModifierSubType, scope enums.FeeScope, amount string, priority int) models.OrderModifier {
	return models.OrderModifier{
		ID:          uuid.New(),
		Kind:        enums.ModifierKindFee,
		SubType:     sub,
		RawAmount:   decimal.RequireFromString(amount),
		DisplayName: "Service fee",
		Priority:    priority,
		FeeScope:    &scope,
		Active:      true,
	}
}

func coupon(sub enums.ModifierSubType, base enums.CouponBase, amount string) models.OrderModifier {
	code := "SAVE"
	return models.OrderModifier{
		ID:          uuid.New(),
		Kind:        enums.ModifierKindCoupon,
		SubType:     sub,
		RawAmount:   decimal.RequireFromString(amount),
		DisplayName: "Coupon",
		Code:        &code,
		CouponBase:  &base,
		Active:      true,
	}
}

func assertMoney(t *testing.T, label string, got money.Money, want string) {
	t.Helper()
	if !got.Equal(money.MustParse(want)) {
		t.Fatalf("%s: got %s want %s", label, got, want)
	}
}

func TestPriceTotalOrderCouponSeesFees(t *testing.T) {
	tickets := []TicketLine{ticketLine("10", 1)}
	fees := []models.OrderModifier{fee(enums.ModifierSubTypeFlat, enums.FeeScopeAll, "5", 0)}

	total := Price(tickets, fees, []models.OrderModifier{coupon(enums.ModifierSubTypePercent, enums.CouponBaseTotalOrder, "20")}, pricingNow)
	assertMoney(t, "subtotal", total.Subtotal, "10")
	assertMoney(t, "fees", total.FeesTotal, "5")
	assertMoney(t, "discount", total.DiscountTotal, "3")
	assertMoney(t, "total", total.Total, "12")

	ticketsOnly := Price(tickets, fees, []models.OrderModifier{coupon(enums.ModifierSubTypePercent, enums.CouponBaseTicketsOnly, "20")}, pricingNow)
	assertMoney(t, "discount", ticketsOnly.DiscountTotal, "2")
	assertMoney(t, "total", ticketsOnly.Total, "13")

	last := ticketsOnly.Lines[len(ticketsOnly.Lines)-1]
	if last.Type != enums.OrderItemCoupon {
		t.Fatalf("expected coupon line last, got %s", last.Type)
	}
	assertMoney(t, "coupon line", last.Amount, "-2")
}

func TestPricePerUnitFee(t *testing.T) {
	tickets := []TicketLine{ticketLine("10", 3)}
	fees := []models.OrderModifier{fee(enums.ModifierSubTypeFlat, enums.FeeScopePer, "2", 0)}

	priced := Price(tickets, fees, nil, pricingNow)
	assertMoney(t, "subtotal", priced.Subtotal, "30")
	assertMoney(t, "fees", priced.FeesTotal, "6")
	assertMoney(t, "total", priced.Total, "36")
	if priced.Lines[1].Quantity != 3 {
		t.Fatalf("expected per fee quantity 3, got %d", priced.Lines[1].Quantity)
	}
}

func TestPricePercentFeeKeepsPrecision(t *testing.T) {
	tickets := []TicketLine{ticketLine("10.33", 1)}
	fees := []models.OrderModifier{fee(enums.ModifierSubTypePercent, enums.FeeScopeAll, "7.5", 0)}

	priced := Price(tickets, fees, nil, pricingNow)
	assertMoney(t, "fees", priced.FeesTotal, "0.77475")
	assertMoney(t, "total", priced.Total, "11.10475")
}

func TestPriceFlatCouponNeverGoesNegative(t *testing.T) {
	tickets := []TicketLine{ticketLine("4", 1)}
	coupons := []models.OrderModifier{
		coupon(enums.ModifierSubTypeFlat, enums.CouponBaseTicketsOnly, "10"),
		coupon(enums.ModifierSubTypeFlat, enums.CouponBaseTicketsOnly, "10"),
	}
	priced := Price(tickets, nil, coupons, pricingNow)
	assertMoney(t, "discount", priced.DiscountTotal, "4")
	assertMoney(t, "total", priced.Total, "0")
}

func TestPriceOrderIsPriorityThenID(t *testing.T) {
	tickets := []TicketLine{ticketLine("10", 1)}
	low := fee(enums.ModifierSubTypeFlat, enums.FeeScopeAll, "1", 1)
	high := fee(enums.ModifierSubTypeFlat, enums.FeeScopeAll, "1", 5)
	tieA := fee(enums.ModifierSubTypeFlat, enums.FeeScopeAll, "1", 3)
	tieB := fee(enums.ModifierSubTypeFlat, enums.FeeScopeAll, "1", 3)
	tieA.ID = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	tieB.ID = uuid.MustParse("00000000-0000-0000-0000-00000000000b")

	priced := Price(tickets, []models.OrderModifier{high, tieB, low, tieA}, nil, pricingNow)
	want := []uuid.UUID{low.ID, tieA.ID, tieB.ID, high.ID}
	for i, id := range want {
		line := priced.Lines[i+1]
		if line.ModifierID == nil || *line.ModifierID != id {
			t.Fatalf("fee %d out of order", i)
		}
	}
}

func TestPriceSkipsInactiveAndOutOfWindow(t *testing.T) {
	tickets := []TicketLine{ticketLine("10", 1)}
	inactive := fee(enums.ModifierSubTypeFlat, enums.FeeScopeAll, "1", 0)
	inactive.Active = false
	future := fee(enums.ModifierSubTypeFlat, enums.FeeScopeAll, "1", 0)
	starts := pricingNow.Add(time.Hour)
	future.StartsAt = &starts
	expired := fee(enums.ModifierSubTypeFlat, enums.FeeScopeAll, "1", 0)
	ends := pricingNow
	expired.EndsAt = &ends
	otherEvent := fee(enums.ModifierSubTypeFlat, enums.FeeScopeAll, "1", 0)
	eventID := uuid.New()
	otherEvent.EventID = &eventID

	priced := Price(tickets, []models.OrderModifier{inactive, future, expired, otherEvent}, nil, pricingNow)
	assertMoney(t, "fees", priced.FeesTotal, "0")
	if len(priced.Lines) != 1 {
		t.Fatalf("expected ticket line only, got %d lines", len(priced.Lines))
	}
}

func TestPriceIsDeterministic(t *testing.T) {
	tickets := []TicketLine{ticketLine("12.5", 2), ticketLine("7", 1)}
	fees := []models.OrderModifier{
		fee(enums.ModifierSubTypePercent, enums.FeeScopeAll, "3.3", 2),
		fee(enums.ModifierSubTypeFlat, enums.FeeScopePer, "1.25", 1),
	}
	coupons := []models.OrderModifier{coupon(enums.ModifierSubTypePercent, enums.CouponBaseTotalOrder, "15")}

	first, err := json.Marshal(Price(tickets, fees, coupons, pricingNow))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second, err := json.Marshal(Price(tickets, fees, coupons, pricingNow))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("pricing is not deterministic:\n%s\n%s", first, second)
	}
}

func TestPriceEmptyCart(t *testing.T) {
	priced := Price(nil, []models.OrderModifier{fee(enums.ModifierSubTypeFlat, enums.FeeScopeAll, "5", 0)}, nil, pricingNow)
	if !priced.IsEmpty() {
		t.Fatalf("expected empty cart")
	}
	assertMoney(t, "total", priced.Total, "0")
}
