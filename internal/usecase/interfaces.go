package usecase

import (
	"context"
	"time"

	"github.com/redeemd/coupon-engine/internal/domain"
)

// CouponGateway is the surface the delivery layers (HTTP, Kafka) call into.
// It is implemented directly by CouponService and by the Kafka request/reply
// gateway.
type CouponGateway interface {
	CreateUser(ctx context.Context, username string) (domain.CreateResult, error)
	CreateCoupon(ctx context.Context, name string, limits domain.QuotaLimits) (domain.CreateResult, error)
	ApplyCoupon(ctx context.Context, couponName, username string, at time.Time) (domain.RedeemResult, error)
	ListUsers(ctx context.Context) ([]string, error)
	ListCoupons(ctx context.Context) ([]string, error)
}
