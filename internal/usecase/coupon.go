package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redeemd/coupon-engine/internal/domain"
	"github.com/redeemd/coupon-engine/internal/repository"
	"github.com/redeemd/coupon-engine/internal/retry"
	"github.com/rs/zerolog"
)

// CouponService is the redemption-eligibility engine. It is stateless: every
// invocation re-derives all counts from the usage log, so there is no cached
// counter that can desynchronize from the recorded facts. Safe for
// concurrent use.
type CouponService struct {
	store  repository.Store
	policy retry.Policy
	logger zerolog.Logger
}

func NewCouponService(store repository.Store, policy retry.Policy, logger zerolog.Logger) *CouponService {
	return &CouponService{store: store, policy: policy, logger: logger}
}

// CreateUser registers a username. A duplicate name is reported as a
// non-created result, not an error; losing an insert race to the unique
// constraint is treated the same way.
func (s *CouponService) CreateUser(ctx context.Context, username string) (domain.CreateResult, error) {
	_, err := s.findUser(ctx, username)
	if err == nil {
		return domain.CreateResult{Created: false, Code: domain.CodeRecordAlreadyExists}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.CreateResult{Code: domain.CodeDatabaseError}, s.storageError(err)
	}

	var id int64
	err = s.policy.Do(ctx, repository.IsTransient, func(ctx context.Context) error {
		var opErr error
		id, opErr = s.store.CreateUser(ctx, username)
		return opErr
	})
	if repository.IsUniqueViolation(err) {
		return domain.CreateResult{Created: false, Code: domain.CodeRecordAlreadyExists}, nil
	}
	if err != nil {
		return domain.CreateResult{Code: domain.CodeDatabaseError}, s.storageError(err)
	}

	s.logger.Info().Str("username", username).Int64("user_id", id).Msg("user created")
	return domain.CreateResult{Created: true, ID: id, Code: domain.CodeRecordCreateSuccess}, nil
}

// CreateCoupon registers a coupon with its four quota limits. Negative
// limits are a caller error and are never retried.
func (s *CouponService) CreateCoupon(ctx context.Context, name string, limits domain.QuotaLimits) (domain.CreateResult, error) {
	if err := limits.Validate(); err != nil {
		return domain.CreateResult{Code: domain.CodeInvalidArgument}, err
	}

	_, err := s.findCoupon(ctx, name)
	if err == nil {
		return domain.CreateResult{Created: false, Code: domain.CodeRecordAlreadyExists}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.CreateResult{Code: domain.CodeDatabaseError}, s.storageError(err)
	}

	var id int64
	err = s.policy.Do(ctx, repository.IsTransient, func(ctx context.Context) error {
		var opErr error
		id, opErr = s.store.CreateCoupon(ctx, name, limits)
		return opErr
	})
	if repository.IsUniqueViolation(err) {
		return domain.CreateResult{Created: false, Code: domain.CodeRecordAlreadyExists}, nil
	}
	if err != nil {
		return domain.CreateResult{Code: domain.CodeDatabaseError}, s.storageError(err)
	}

	s.logger.Info().Str("coupon", name).Int64("coupon_id", id).Msg("coupon created")
	return domain.CreateResult{Created: true, ID: id, Code: domain.CodeRecordCreateSuccess}, nil
}

// ApplyCoupon evaluates the ordered quota checks for (couponName, username)
// at the request timestamp and records the redemption when all pass. The
// first failing check determines the outcome; no later check executes.
//
// Existence lookups run as individually retried reads. The quota counts and
// the usage append run inside one transaction holding a row lock on the
// coupon, so two concurrent redemptions of the same coupon cannot both
// observe count < limit and both append.
func (s *CouponService) ApplyCoupon(ctx context.Context, couponName, username string, at time.Time) (domain.RedeemResult, error) {
	res := domain.RedeemResult{Username: username, CouponName: couponName}

	user, err := s.findUser(ctx, username)
	if errors.Is(err, pgx.ErrNoRows) {
		res.Outcome = domain.OutcomeInvalidUser
		return res, nil
	}
	if err != nil {
		return res, s.storageError(err)
	}

	coupon, err := s.findCoupon(ctx, couponName)
	if errors.Is(err, pgx.ErrNoRows) {
		res.Outcome = domain.OutcomeInvalidCoupon
		return res, nil
	}
	if err != nil {
		return res, s.storageError(err)
	}

	// Once the append has been issued, caller cancellation is no longer
	// honored: the transaction runs on a detached context and checks ctx
	// only before the insert, so no "maybe redeemed" state escapes.
	txCtx := context.WithoutCancel(ctx)

	var outcome domain.Outcome
	var record *domain.UsageRecord
	var appendIssued bool

	redeem := func(context.Context) error {
		appendIssued = false
		record = nil
		return s.store.ExecTx(txCtx, func(q repository.Querier) error {
			locked, err := q.LockCoupon(txCtx, coupon.ID)
			if err != nil {
				return err
			}

			globalCount, err := q.CountUsage(txCtx, locked.ID)
			if err != nil {
				return err
			}
			if globalCount >= int64(locked.Limits.GlobalTotal) {
				outcome = domain.OutcomeGlobalExhausted
				return nil
			}

			userCount, err := q.CountUserUsage(txCtx, locked.ID, user.ID)
			if err != nil {
				return err
			}
			if userCount >= int64(locked.Limits.UserTotal) {
				outcome = domain.OutcomeUserExhausted
				return nil
			}

			weeklyCount, err := q.CountUserUsageInWindow(txCtx, locked.ID, user.ID, domain.WeeklyWindow(at))
			if err != nil {
				return err
			}
			if weeklyCount >= int64(locked.Limits.UserWeekly) {
				outcome = domain.OutcomeWeeklyExhausted
				return nil
			}

			dailyCount, err := q.CountUserUsageInWindow(txCtx, locked.ID, user.ID, domain.DailyWindow(at))
			if err != nil {
				return err
			}
			if dailyCount >= int64(locked.Limits.UserDaily) {
				outcome = domain.OutcomeDailyExhausted
				return nil
			}

			if err := ctx.Err(); err != nil {
				return err
			}
			appendIssued = true
			rec, err := q.InsertUsage(txCtx, locked.ID, user.ID, at)
			if err != nil {
				return err
			}
			record = &rec
			outcome = domain.OutcomeRedeemed
			return nil
		})
	}

	// Re-running the transaction is allowed only when the failure is known
	// not to have committed anything: the request never reached the server,
	// the server reported a rollback, or the append was never issued.
	retryable := func(err error) bool {
		if repository.SafeToRetry(err) || repository.IsRolledBack(err) {
			return true
		}
		return !appendIssued && repository.IsTransient(err)
	}

	err = s.policy.Do(ctx, retryable, redeem)
	if err != nil {
		return res, s.redeemError(err, appendIssued)
	}

	res.Outcome = outcome
	res.Record = record
	s.logger.Info().
		Str("username", username).
		Str("coupon", couponName).
		Str("outcome", outcome.String()).
		Time("request_ts", at).
		Msg("coupon evaluated")
	return res, nil
}

func (s *CouponService) ListUsers(ctx context.Context) ([]string, error) {
	var names []string
	err := s.policy.Do(ctx, repository.IsTransient, func(ctx context.Context) error {
		var opErr error
		names, opErr = s.store.ListUsers(ctx)
		return opErr
	})
	if err != nil {
		return nil, s.storageError(err)
	}
	return names, nil
}

func (s *CouponService) ListCoupons(ctx context.Context) ([]string, error) {
	var names []string
	err := s.policy.Do(ctx, repository.IsTransient, func(ctx context.Context) error {
		var opErr error
		names, opErr = s.store.ListCoupons(ctx)
		return opErr
	})
	if err != nil {
		return nil, s.storageError(err)
	}
	return names, nil
}

func (s *CouponService) findUser(ctx context.Context, username string) (domain.User, error) {
	var user domain.User
	// pgx.ErrNoRows is not transient, so absence falls straight through.
	err := s.policy.Do(ctx, repository.IsTransient, func(ctx context.Context) error {
		var opErr error
		user, opErr = s.store.GetUserByName(ctx, username)
		return opErr
	})
	return user, err
}

func (s *CouponService) findCoupon(ctx context.Context, name string) (domain.Coupon, error) {
	var coupon domain.Coupon
	err := s.policy.Do(ctx, repository.IsTransient, func(ctx context.Context) error {
		var opErr error
		coupon, opErr = s.store.GetCouponByName(ctx, name)
		return opErr
	})
	return coupon, err
}

// storageError maps a read-phase failure that survived the retry budget.
// Permanent (query-shape) failures propagate as-is: they indicate a
// deployment defect, and dressing them up as unavailability would mislead
// operators.
func (s *CouponService) storageError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if repository.IsPermanent(err) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
}

// redeemError additionally distinguishes the ambiguous case: once the append
// was issued, a failure whose commit status is unknown must not be reported
// as plain unavailability.
func (s *CouponService) redeemError(err error, appendIssued bool) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if repository.IsPermanent(err) {
		return err
	}
	if !appendIssued || notCommitted(err) {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrAppendStatusUnknown, err)
}

// notCommitted reports whether the server definitively rejected the work:
// any server-reported SQL error aborts the transaction, so nothing was
// committed. Network-level failures after the append was issued do not
// qualify.
func notCommitted(err error) bool {
	return repository.SafeToRetry(err) || repository.IsRolledBack(err) || repository.IsPermanent(err)
}

var _ CouponGateway = (*CouponService)(nil)
