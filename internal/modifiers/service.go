package modifiers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/boxoffice-backend/pkg/db"
	"github.com/angelmondragon/boxoffice-backend/pkg/db/models"
	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
)

var hundred = decimal.NewFromInt(100)

type modifierRepository interface {
	Create(ctx context.Context, mod *models.OrderModifier) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.OrderModifier, error)
	FindByCode(ctx context.Context, code string) (*models.OrderModifier, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.OrderModifier, error)
	ListActiveFees(ctx context.Context, now time.Time) ([]models.OrderModifier, error)
	List(ctx context.Context, kind *enums.ModifierKind) ([]models.OrderModifier, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (int64, error)
}

// CreateModifierInput configures a fee or a coupon.
type CreateModifierInput struct {
	Kind        enums.ModifierKind
	SubType     enums.ModifierSubType
	RawAmount   decimal.Decimal
	DisplayName string
	Code        *string
	Priority    int
	FeeScope    *enums.FeeScope
	CouponBase  *enums.CouponBase
	EventID     *uuid.UUID
	StartsAt    *time.Time
	EndsAt      *time.Time
}

// Service administers modifiers and prices carts against them.
type Service struct {
	logg *logger.Logger
	repo modifierRepository
	now  func() time.Time
}

func NewService(logg *logger.Logger, repo modifierRepository) (*Service, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if repo == nil {
		return nil, fmt.Errorf("modifier repository required")
	}
	return &Service{logg: logg, repo: repo, now: time.Now}, nil
}

func (s *Service) CreateModifier(ctx context.Context, input CreateModifierInput) (*models.OrderModifier, error) {
	if err := validateInput(&input); err != nil {
		return nil, err
	}
	mod := &models.OrderModifier{
		Kind:        input.Kind,
		SubType:     input.SubType,
		RawAmount:   input.RawAmount,
		DisplayName: strings.TrimSpace(input.DisplayName),
		Code:        input.Code,
		Priority:    input.Priority,
		FeeScope:    input.FeeScope,
		CouponBase:  input.CouponBase,
		EventID:     input.EventID,
		Active:      true,
		StartsAt:    input.StartsAt,
		EndsAt:      input.EndsAt,
	}
	if err := s.repo.Create(ctx, mod); err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create modifier")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"modifier_id": mod.ID.String(),
		"kind":        mod.Kind,
		"sub_type":    mod.SubType,
	}), "order modifier created")
	return mod, nil
}

func validateInput(input *CreateModifierInput) error {
	if !input.Kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid modifier kind")
	}
	if !input.SubType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid modifier sub type")
	}
	if strings.TrimSpace(input.DisplayName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "display name is required")
	}
	if input.RawAmount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}
	if input.SubType == enums.ModifierSubTypePercent && input.Kind == enums.ModifierKindCoupon && input.RawAmount.GreaterThan(hundred) {
		return pkgerrors.New(pkgerrors.CodeValidation, "percent coupons cannot exceed 100")
	}
	if input.StartsAt != nil && input.EndsAt != nil && !input.EndsAt.After(*input.StartsAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "ends_at must be after starts_at")
	}
	switch input.Kind {
	case enums.ModifierKindFee:
		if input.FeeScope == nil {
			scope := enums.FeeScopeAll
			input.FeeScope = &scope
		}
		if !input.FeeScope.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid fee scope")
		}
		input.CouponBase = nil
		input.Code = nil
	case enums.ModifierKindCoupon:
		if input.Code == nil || strings.TrimSpace(*input.Code) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
		}
		code := strings.ToUpper(strings.TrimSpace(*input.Code))
		input.Code = &code
		if input.CouponBase == nil {
			base := enums.CouponBaseTicketsOnly
			input.CouponBase = &base
		}
		if !input.CouponBase.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid coupon base")
		}
		input.FeeScope = nil
	}
	return nil
}

func (s *Service) ListModifiers(ctx context.Context, kind *enums.ModifierKind) ([]models.OrderModifier, error) {
	mods, err := s.repo.List(ctx, kind)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list modifiers")
	}
	return mods, nil
}

func (s *Service) GetModifier(ctx context.Context, id uuid.UUID) (*models.OrderModifier, error) {
	mod, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "modifier not found").WithDetails(map[string]any{"modifierId": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load modifier")
	}
	return mod, nil
}

// DeactivateModifier stops a modifier from applying to future pricing.
// Existing orders keep their frozen lines.
func (s *Service) DeactivateModifier(ctx context.Context, id uuid.UUID) error {
	rows, err := s.repo.SetActive(ctx, id, false)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate modifier")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "modifier not found").WithDetails(map[string]any{"modifierId": id})
	}
	s.logg.Info(s.logg.WithField(ctx, "modifier_id", id.String()), "order modifier deactivated")
	return nil
}

// CouponByCode resolves a buyer-entered code to a live coupon.
func (s *Service) CouponByCode(ctx context.Context, code string) (*models.OrderModifier, error) {
	if strings.TrimSpace(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	mod, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupon")
	}
	if !IsLive(*mod, s.now().UTC()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon is not active")
	}
	return mod, nil
}

// PriceCart loads the live fees plus the cart's coupons and prices the
// lines against a single captured now.
func (s *Service) PriceCart(ctx context.Context, tickets []TicketLine, couponIDs []uuid.UUID) (*PricedCart, error) {
	now := s.now().UTC()
	fees, err := s.repo.ListActiveFees(ctx, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load fees")
	}
	coupons, err := s.repo.FindByIDs(ctx, couponIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupons")
	}
	priced := Price(tickets, fees, coupons, now)
	return &priced, nil
}
