package kafka

import "time"

const (
	TopicCreateUserRequest   = "redeem.user.create.req"
	TopicCreateCouponRequest = "redeem.coupon.create.req"
	TopicApplyRequest        = "redeem.coupon.apply.req"
	TopicCreateUserRetry     = "redeem.user.create.retry"
	TopicCreateCouponRetry   = "redeem.coupon.create.retry"
	TopicApplyRetry          = "redeem.coupon.apply.retry"
	TopicReplyPrefix         = "redeem.reply."
	TopicRequestSuffix       = ".req"
	TopicRetrySuffix         = ".retry"
	TopicDLQSuffix           = ".dlq"

	RequestTimeout = 3 * time.Second

	RetryHeaderNextAt = "x-next-at"
	ErrorHeaderKey    = "x-error"
)
