package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redeemd/coupon-engine/internal/domain"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type queries struct {
	db dbtx
}

func (q *queries) withTx(tx pgx.Tx) *queries {
	return &queries{db: tx}
}

const createUser = `
INSERT INTO users (name) VALUES ($1) RETURNING id
`

func (q *queries) CreateUser(ctx context.Context, name string) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, createUser, name).Scan(&id)
	return id, err
}

const getUserByName = `
SELECT id, name FROM users WHERE name = $1
`

func (q *queries) GetUserByName(ctx context.Context, name string) (domain.User, error) {
	var u domain.User
	err := q.db.QueryRow(ctx, getUserByName, name).Scan(&u.ID, &u.Name)
	return u, err
}

const listUsers = `
SELECT name FROM users
`

func (q *queries) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := q.db.Query(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

const createCoupon = `
INSERT INTO coupons (name, global_total, user_total, user_daily, user_weekly)
VALUES ($1, $2, $3, $4, $5)
RETURNING id
`

func (q *queries) CreateCoupon(ctx context.Context, name string, limits domain.QuotaLimits) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, createCoupon,
		name, limits.GlobalTotal, limits.UserTotal, limits.UserDaily, limits.UserWeekly,
	).Scan(&id)
	return id, err
}

const getCouponByName = `
SELECT id, name, global_total, user_total, user_daily, user_weekly
FROM coupons WHERE name = $1
`

func (q *queries) GetCouponByName(ctx context.Context, name string) (domain.Coupon, error) {
	var c domain.Coupon
	err := q.db.QueryRow(ctx, getCouponByName, name).Scan(
		&c.ID, &c.Name,
		&c.Limits.GlobalTotal, &c.Limits.UserTotal, &c.Limits.UserDaily, &c.Limits.UserWeekly,
	)
	return c, err
}

const listCoupons = `
SELECT name FROM coupons
`

func (q *queries) ListCoupons(ctx context.Context) ([]string, error) {
	rows, err := q.db.Query(ctx, listCoupons)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

const lockCoupon = `
SELECT id, name, global_total, user_total, user_daily, user_weekly
FROM coupons WHERE id = $1
FOR UPDATE
`

func (q *queries) LockCoupon(ctx context.Context, couponID int64) (domain.Coupon, error) {
	var c domain.Coupon
	err := q.db.QueryRow(ctx, lockCoupon, couponID).Scan(
		&c.ID, &c.Name,
		&c.Limits.GlobalTotal, &c.Limits.UserTotal, &c.Limits.UserDaily, &c.Limits.UserWeekly,
	)
	return c, err
}

const countUsage = `
SELECT COUNT(*) FROM coupon_usage_log WHERE coupon_id = $1
`

func (q *queries) CountUsage(ctx context.Context, couponID int64) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countUsage, couponID).Scan(&n)
	return n, err
}

const countUserUsage = `
SELECT COUNT(*) FROM coupon_usage_log WHERE coupon_id = $1 AND user_id = $2
`

func (q *queries) CountUserUsage(ctx context.Context, couponID, userID int64) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countUserUsage, couponID, userID).Scan(&n)
	return n, err
}

const countUserUsageInWindow = `
SELECT COUNT(*) FROM coupon_usage_log
WHERE coupon_id = $1 AND user_id = $2 AND redeemed_at BETWEEN $3 AND $4
`

func (q *queries) CountUserUsageInWindow(ctx context.Context, couponID, userID int64, w domain.Window) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countUserUsageInWindow, couponID, userID, w.Start, w.End).Scan(&n)
	return n, err
}

const insertUsage = `
INSERT INTO coupon_usage_log (coupon_id, user_id, redeemed_at)
VALUES ($1, $2, $3)
RETURNING id
`

func (q *queries) InsertUsage(ctx context.Context, couponID, userID int64, at time.Time) (domain.UsageRecord, error) {
	rec := domain.UsageRecord{CouponID: couponID, UserID: userID, RedeemedAt: at}
	err := q.db.QueryRow(ctx, insertUsage, couponID, userID, at).Scan(&rec.ID)
	return rec, err
}
