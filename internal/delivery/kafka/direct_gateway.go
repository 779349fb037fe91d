package kafka

import (
	"context"
	"time"

	"github.com/redeemd/coupon-engine/internal/domain"
	"github.com/redeemd/coupon-engine/internal/usecase"
)

// DirectGateway bypasses the message bus and calls the engine in-process.
// Used when the event-driven path is disabled.
type DirectGateway struct {
	service *usecase.CouponService
}

func NewDirectGateway(service *usecase.CouponService) usecase.CouponGateway {
	return &DirectGateway{service: service}
}

func (g *DirectGateway) CreateUser(ctx context.Context, username string) (domain.CreateResult, error) {
	return g.service.CreateUser(ctx, username)
}

func (g *DirectGateway) CreateCoupon(ctx context.Context, name string, limits domain.QuotaLimits) (domain.CreateResult, error) {
	return g.service.CreateCoupon(ctx, name, limits)
}

func (g *DirectGateway) ApplyCoupon(ctx context.Context, couponName, username string, at time.Time) (domain.RedeemResult, error) {
	return g.service.ApplyCoupon(ctx, couponName, username, at)
}

func (g *DirectGateway) ListUsers(ctx context.Context) ([]string, error) {
	return g.service.ListUsers(ctx)
}

func (g *DirectGateway) ListCoupons(ctx context.Context) ([]string, error) {
	return g.service.ListCoupons(ctx)
}
