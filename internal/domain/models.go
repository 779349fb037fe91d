package domain

import (
	"errors"
	"time"
)

var (
	ErrInvalidLimits       = errors.New("coupon limits must be non-negative")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrAppendStatusUnknown = errors.New("usage append outcome unknown")
)

// User is an identity that can redeem coupons. Never mutated after creation.
type User struct {
	ID   int64
	Name string
}

// QuotaLimits holds the four configured redemption caps for a coupon.
// A limit of zero means the coupon is never redeemable in that scope.
type QuotaLimits struct {
	GlobalTotal int
	UserTotal   int
	UserDaily   int
	UserWeekly  int
}

// DefaultLimits are applied when a coupon is created without explicit
// quota configuration.
func DefaultLimits() QuotaLimits {
	return QuotaLimits{
		GlobalTotal: 10000,
		UserTotal:   3,
		UserDaily:   1,
		UserWeekly:  1,
	}
}

// Validate rejects negative limits. Zero is legal and means "never redeemable".
func (l QuotaLimits) Validate() error {
	if l.GlobalTotal < 0 || l.UserTotal < 0 || l.UserDaily < 0 || l.UserWeekly < 0 {
		return ErrInvalidLimits
	}
	return nil
}

// Coupon is an identity plus its quota configuration. Immutable after creation.
type Coupon struct {
	ID     int64
	Name   string
	Limits QuotaLimits
}

// UsageRecord is one immutable redemption fact. The set of usage records is
// the sole source of truth for quota consumption; counts are always derived
// from it, never from a separately maintained counter.
type UsageRecord struct {
	ID         int64
	CouponID   int64
	UserID     int64
	RedeemedAt time.Time
}
