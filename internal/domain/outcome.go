package domain

// Outcome is the closed set of terminal results of a redemption attempt.
// It is a business result, not an error: every Outcome corresponds to a
// fully evaluated request.
type Outcome int

const (
	OutcomeInvalidUser Outcome = iota
	OutcomeInvalidCoupon
	OutcomeGlobalExhausted
	OutcomeUserExhausted
	OutcomeWeeklyExhausted
	OutcomeDailyExhausted
	OutcomeRedeemed
)

// Message returns the user-facing text for the outcome. These strings are a
// compatibility contract with existing integrations and must not be reworded.
func (o Outcome) Message() string {
	switch o {
	case OutcomeInvalidUser:
		return "Not a valid user"
	case OutcomeInvalidCoupon:
		return "Not a valid coupon"
	case OutcomeGlobalExhausted:
		return "Coupon has been exhausted"
	case OutcomeUserExhausted:
		return "User has exhausted the number of times he/she can use a particular coupon"
	case OutcomeWeeklyExhausted:
		return "User has exhausted the number of times he/she can use a particular coupon in a week"
	case OutcomeDailyExhausted:
		return "User has exhausted the number of times he/she can use a particular coupon in a day"
	case OutcomeRedeemed:
		return "Redeemed discount"
	default:
		return "unknown outcome"
	}
}

func (o Outcome) Redeemed() bool { return o == OutcomeRedeemed }

func (o Outcome) String() string {
	switch o {
	case OutcomeInvalidUser:
		return "InvalidUser"
	case OutcomeInvalidCoupon:
		return "InvalidCoupon"
	case OutcomeGlobalExhausted:
		return "GlobalExhausted"
	case OutcomeUserExhausted:
		return "UserExhausted"
	case OutcomeWeeklyExhausted:
		return "WeeklyExhausted"
	case OutcomeDailyExhausted:
		return "DailyExhausted"
	case OutcomeRedeemed:
		return "Redeemed"
	default:
		return "Unknown"
	}
}

// ResponseCode is the numeric status vocabulary carried alongside creation
// results. Values are fixed by existing integrations.
type ResponseCode int

const (
	CodeRecordCreateSuccess ResponseCode = 2000
	CodeRecordReadSuccess   ResponseCode = 2001
	CodeRecordFound         ResponseCode = 2003
	CodeRecordCreateFail    ResponseCode = 3000
	CodeRecordReadFail      ResponseCode = 3001
	CodeRecordNotFound      ResponseCode = 3003
	CodeRecordAlreadyExists ResponseCode = 3004
	CodeInvalidArgument     ResponseCode = 3007
	CodeDatabaseError       ResponseCode = 4000
)

// CreateResult is the outcome of a user or coupon registration.
// A duplicate name is reported here, never as an error.
type CreateResult struct {
	Created bool
	ID      int64
	Code    ResponseCode
}

// RedeemResult is the outcome of one ApplyCoupon evaluation.
// Record is set only when Outcome is Redeemed.
type RedeemResult struct {
	Username   string
	CouponName string
	Outcome    Outcome
	Record     *UsageRecord
}
