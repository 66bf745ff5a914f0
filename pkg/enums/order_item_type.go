package enums

// OrderItemType labels the frozen lines copied from a priced cart.
type OrderItemType string

const (
	OrderItemTicket OrderItemType = "ticket"
	OrderItemFee    OrderItemType = "fee"
	OrderItemCoupon OrderItemType = "coupon"
)

// String implements fmt.Stringer.
func (t OrderItemType) String() string {
	return string(t)
}
