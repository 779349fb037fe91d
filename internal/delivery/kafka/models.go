package kafka

import "time"

const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

const (
	ErrCodeInvalidLimits  = "INVALID_LIMITS"
	ErrCodeUnavailable    = "STORAGE_UNAVAILABLE"
	ErrCodeAppendUnknown  = "APPEND_STATUS_UNKNOWN"
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)

type RequestPayload struct {
	SchemaVersion int    `json:"schema_version"`
	CorrelationID string `json:"correlation_id"`
	ReplyTo       string `json:"reply_to"`

	Username   string `json:"username,omitempty"`
	CouponName string `json:"coupon_name,omitempty"`

	GlobalTotal *int `json:"global_total,omitempty"`
	UserTotal   *int `json:"user_total,omitempty"`
	UserDaily   *int `json:"user_daily,omitempty"`
	UserWeekly  *int `json:"user_weekly,omitempty"`

	RequestTimestamp *time.Time `json:"request_timestamp,omitempty"`
}

type CreateReply struct {
	Created bool `json:"created"`
	Code    int  `json:"code"`
}

type ApplyReply struct {
	Username   string `json:"username"`
	CouponName string `json:"coupon_name"`
	Message    string `json:"message"`
	Redeemed   bool   `json:"redeemed"`
}

type ResponsePayload struct {
	SchemaVersion int    `json:"schema_version"`
	CorrelationID string `json:"correlation_id"`
	Status        string `json:"status"`
	ErrorCode     string `json:"error_code,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`

	Create *CreateReply `json:"create,omitempty"`
	Apply  *ApplyReply  `json:"apply,omitempty"`
}
