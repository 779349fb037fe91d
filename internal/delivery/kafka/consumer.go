package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redeemd/coupon-engine/internal/config"
	"github.com/redeemd/coupon-engine/internal/domain"
	"github.com/redeemd/coupon-engine/internal/usecase"
	"github.com/rs/zerolog/log"
	"github.com/twmb/franz-go/pkg/kgo"
)

type Consumer struct {
	client  *kgo.Client
	cfg     *config.Config
	service *usecase.CouponService
	ready   chan struct{}
}

func NewConsumer(cfg *config.Config, client *kgo.Client, service *usecase.CouponService) *Consumer {
	return &Consumer{
		client:  client,
		cfg:     cfg,
		service: service,
		ready:   make(chan struct{}),
	}
}

func (c *Consumer) Start(ctx context.Context) {
	close(c.ready)
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			log.Error().Interface("errors", errs).Msg("consumer poll errors")
		}

		iter := fetches.RecordIter()
		for !iter.Done() {
			record := iter.Next()
			c.processRecord(ctx, record)
		}

		if err := c.client.CommitRecords(ctx, fetches.Records()...); err != nil {
			log.Error().Err(err).Msg("failed to commit records")
		}
	}
}

func (c *Consumer) StartRetry(ctx context.Context) {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return
		}
		iter := fetches.RecordIter()
		for !iter.Done() {
			record := iter.Next()

			if nextAt, ok := retryNextAt(record); ok && time.Now().Before(nextAt) {
				time.Sleep(time.Until(nextAt))
			}

			mainTopic := strings.TrimSuffix(record.Topic, TopicRetrySuffix) + TopicRequestSuffix
			newRecord := &kgo.Record{
				Topic:   mainTopic,
				Key:     record.Key,
				Value:   record.Value,
				Headers: record.Headers,
			}
			if err := c.client.ProduceSync(ctx, newRecord).FirstErr(); err != nil {
				log.Error().Err(err).Msg("failed to requeue retry record")
			}
		}
		if err := c.client.CommitRecords(ctx, fetches.Records()...); err != nil {
			log.Error().Err(err).Msg("failed to commit retry records")
		}
	}
}

func (c *Consumer) Ready() <-chan struct{} {
	return c.ready
}

func (c *Consumer) processRecord(ctx context.Context, record *kgo.Record) {
	switch record.Topic {
	case TopicCreateUserRequest:
		c.handleCreateUser(ctx, record)
	case TopicCreateCouponRequest:
		c.handleCreateCoupon(ctx, record)
	case TopicApplyRequest:
		c.handleApply(ctx, record)
	}
}

func (c *Consumer) handleCreateUser(ctx context.Context, record *kgo.Record) {
	var req RequestPayload
	if err := json.Unmarshal(record.Value, &req); err != nil {
		c.sendError(ctx, record, ErrCodeInvalidRequest, "invalid request payload")
		return
	}

	result, err := c.service.CreateUser(ctx, req.Username)
	var finalResp *ResponsePayload
	if err != nil {
		code, message := mapServiceError(err)
		finalResp = errorResponse(req.CorrelationID, code, message)
	} else {
		finalResp = createResponse(req.CorrelationID, result)
	}

	c.sendResponse(ctx, req.ReplyTo, finalResp)
}

func (c *Consumer) handleCreateCoupon(ctx context.Context, record *kgo.Record) {
	var req RequestPayload
	if err := json.Unmarshal(record.Value, &req); err != nil {
		c.sendError(ctx, record, ErrCodeInvalidRequest, "invalid request payload")
		return
	}

	limits := domain.DefaultLimits()
	if req.GlobalTotal != nil {
		limits.GlobalTotal = *req.GlobalTotal
	}
	if req.UserTotal != nil {
		limits.UserTotal = *req.UserTotal
	}
	if req.UserDaily != nil {
		limits.UserDaily = *req.UserDaily
	}
	if req.UserWeekly != nil {
		limits.UserWeekly = *req.UserWeekly
	}

	result, err := c.service.CreateCoupon(ctx, req.CouponName, limits)
	var finalResp *ResponsePayload
	if err != nil {
		code, message := mapServiceError(err)
		finalResp = errorResponse(req.CorrelationID, code, message)
	} else {
		finalResp = createResponse(req.CorrelationID, result)
	}

	c.sendResponse(ctx, req.ReplyTo, finalResp)
}

func (c *Consumer) handleApply(ctx context.Context, record *kgo.Record) {
	var req RequestPayload
	if err := json.Unmarshal(record.Value, &req); err != nil {
		c.sendError(ctx, record, ErrCodeInvalidRequest, "invalid request payload")
		return
	}

	at := time.Now().UTC()
	if req.RequestTimestamp != nil {
		at = req.RequestTimestamp.UTC()
	}

	result, err := c.service.ApplyCoupon(ctx, req.CouponName, req.Username, at)
	var finalResp *ResponsePayload
	if err != nil {
		code, message := mapServiceError(err)
		finalResp = errorResponse(req.CorrelationID, code, message)
	} else {
		finalResp = &ResponsePayload{
			SchemaVersion: 1,
			CorrelationID: req.CorrelationID,
			Status:        StatusSuccess,
			Apply: &ApplyReply{
				Username:   result.Username,
				CouponName: result.CouponName,
				Message:    result.Outcome.Message(),
				Redeemed:   result.Outcome.Redeemed(),
			},
		}
	}

	c.sendResponse(ctx, req.ReplyTo, finalResp)
}

func (c *Consumer) sendResponse(ctx context.Context, topic string, resp *ResponsePayload) {
	payload, _ := json.Marshal(resp)
	record := &kgo.Record{
		Topic: topic,
		Value: payload,
	}
	if err := c.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("failed to send response")
	}
}

func (c *Consumer) sendError(ctx context.Context, record *kgo.Record, code, message string) {
	var req RequestPayload
	_ = json.Unmarshal(record.Value, &req)

	resp := errorResponse(req.CorrelationID, code, message)
	if req.ReplyTo != "" {
		c.sendResponse(ctx, req.ReplyTo, resp)
	}

	dlqTopic := record.Topic + TopicDLQSuffix
	dlqRecord := &kgo.Record{
		Topic: dlqTopic,
		Value: record.Value,
		Headers: []kgo.RecordHeader{
			{Key: ErrorHeaderKey, Value: []byte(message)},
		},
	}
	_ = c.client.ProduceSync(ctx, dlqRecord).FirstErr()
}

func retryNextAt(record *kgo.Record) (time.Time, bool) {
	for _, header := range record.Headers {
		if header.Key != RetryHeaderNextAt {
			continue
		}
		nextAt, err := time.Parse(time.RFC3339, string(header.Value))
		if err != nil {
			return time.Time{}, false
		}
		return nextAt, true
	}

	return time.Time{}, false
}

func createResponse(correlationID string, result domain.CreateResult) *ResponsePayload {
	return &ResponsePayload{
		SchemaVersion: 1,
		CorrelationID: correlationID,
		Status:        StatusSuccess,
		Create: &CreateReply{
			Created: result.Created,
			Code:    int(result.Code),
		},
	}
}

func errorResponse(correlationID, code, message string) *ResponsePayload {
	return &ResponsePayload{
		SchemaVersion: 1,
		CorrelationID: correlationID,
		Status:        StatusError,
		ErrorCode:     code,
		ErrorMessage:  message,
	}
}

func mapServiceError(err error) (string, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidLimits):
		return ErrCodeInvalidLimits, err.Error()
	case errors.Is(err, domain.ErrStorageUnavailable):
		return ErrCodeUnavailable, err.Error()
	case errors.Is(err, domain.ErrAppendStatusUnknown):
		return ErrCodeAppendUnknown, err.Error()
	default:
		return ErrCodeInternalError, err.Error()
	}
}
