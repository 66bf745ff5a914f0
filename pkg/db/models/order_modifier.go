package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
)

// OrderModifier is a configured fee or coupon. RawAmount holds a currency
// amount for flat modifiers and a percentage for percent modifiers.
type OrderModifier struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Kind        enums.ModifierKind    `gorm:"column:kind;type:text;not null"`
	SubType     enums.ModifierSubType `gorm:"column:sub_type;type:text;not null"`
	RawAmount   decimal.Decimal       `gorm:"column:raw_amount;type:numeric(12,4);not null"`
	DisplayName string                `gorm:"column:display_name;not null"`
	Code        *string               `gorm:"column:code"`
	Priority    int                   `gorm:"column:priority;not null;default:0"`
	FeeScope    *enums.FeeScope       `gorm:"column:fee_scope;type:text"`
	CouponBase  *enums.CouponBase     `gorm:"column:coupon_base;type:text"`
	EventID     *uuid.UUID            `gorm:"column:event_id;type:uuid"`
	Active      bool                  `gorm:"column:active;not null;default:true"`
	StartsAt    *time.Time            `gorm:"column:starts_at"`
	EndsAt      *time.Time            `gorm:"column:ends_at"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
