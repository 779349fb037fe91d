package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redeemd/coupon-engine/internal/domain"
)

// Store is the narrow persistence boundary for the redemption engine.
// Identity operations run as single calls; quota evaluation and the usage
// append run together inside ExecTx so the check-then-append sequence is
// serialized at the storage layer.
type Store interface {
	Querier

	CreateUser(ctx context.Context, name string) (int64, error)
	GetUserByName(ctx context.Context, name string) (domain.User, error)
	ListUsers(ctx context.Context) ([]string, error)

	CreateCoupon(ctx context.Context, name string, limits domain.QuotaLimits) (int64, error)
	GetCouponByName(ctx context.Context, name string) (domain.Coupon, error)
	ListCoupons(ctx context.Context) ([]string, error)

	ExecTx(ctx context.Context, fn func(Querier) error) error
}

// Querier is the subset of operations available inside a transaction.
type Querier interface {
	// LockCoupon reads the coupon row FOR UPDATE, serializing concurrent
	// redemptions of the same coupon for the remainder of the transaction.
	LockCoupon(ctx context.Context, couponID int64) (domain.Coupon, error)
	CountUsage(ctx context.Context, couponID int64) (int64, error)
	CountUserUsage(ctx context.Context, couponID, userID int64) (int64, error)
	CountUserUsageInWindow(ctx context.Context, couponID, userID int64, w domain.Window) (int64, error)
	InsertUsage(ctx context.Context, couponID, userID int64, at time.Time) (domain.UsageRecord, error)
}

type store struct {
	pool    *pgxpool.Pool
	queries *queries
}

func New(pool *pgxpool.Pool) Store {
	return &store{
		pool:    pool,
		queries: &queries{db: pool},
	}
}

func (s *store) ExecTx(ctx context.Context, fn func(Querier) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	q := s.queries.withTx(tx)
	if err := fn(q); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx err: %v, rollback err: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *store) CreateUser(ctx context.Context, name string) (int64, error) {
	return s.queries.CreateUser(ctx, name)
}

func (s *store) GetUserByName(ctx context.Context, name string) (domain.User, error) {
	return s.queries.GetUserByName(ctx, name)
}

func (s *store) ListUsers(ctx context.Context) ([]string, error) {
	return s.queries.ListUsers(ctx)
}

func (s *store) CreateCoupon(ctx context.Context, name string, limits domain.QuotaLimits) (int64, error) {
	return s.queries.CreateCoupon(ctx, name, limits)
}

func (s *store) GetCouponByName(ctx context.Context, name string) (domain.Coupon, error) {
	return s.queries.GetCouponByName(ctx, name)
}

func (s *store) ListCoupons(ctx context.Context) ([]string, error) {
	return s.queries.ListCoupons(ctx)
}

func (s *store) LockCoupon(ctx context.Context, couponID int64) (domain.Coupon, error) {
	return s.queries.LockCoupon(ctx, couponID)
}

func (s *store) CountUsage(ctx context.Context, couponID int64) (int64, error) {
	return s.queries.CountUsage(ctx, couponID)
}

func (s *store) CountUserUsage(ctx context.Context, couponID, userID int64) (int64, error) {
	return s.queries.CountUserUsage(ctx, couponID, userID)
}

func (s *store) CountUserUsageInWindow(ctx context.Context, couponID, userID int64, w domain.Window) (int64, error) {
	return s.queries.CountUserUsageInWindow(ctx, couponID, userID, w)
}

func (s *store) InsertUsage(ctx context.Context, couponID, userID int64, at time.Time) (domain.UsageRecord, error) {
	return s.queries.InsertUsage(ctx, couponID, userID, at)
}
