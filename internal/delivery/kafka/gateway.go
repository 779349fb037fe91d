package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redeemd/coupon-engine/internal/config"
	"github.com/redeemd/coupon-engine/internal/domain"
	"github.com/redeemd/coupon-engine/internal/usecase"
	"github.com/rs/zerolog/log"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Gateway is the event-driven implementation of the coupon gateway: each
// call produces a request record and blocks on the correlated reply.
type Gateway struct {
	client      *kgo.Client
	cfg         *config.Config
	pendingResp sync.Map
}

func NewGateway(cfg *config.Config, client *kgo.Client) *Gateway {
	return &Gateway{
		client: client,
		cfg:    cfg,
	}
}

func (g *Gateway) CreateUser(ctx context.Context, username string) (domain.CreateResult, error) {
	req := g.newRequest()
	req.Username = username

	resp, err := g.requestReply(ctx, TopicCreateUserRequest, []byte(username), req)
	if err != nil {
		return domain.CreateResult{}, err
	}
	if resp.Status == StatusError {
		return domain.CreateResult{}, g.mapError(resp.ErrorCode, resp.ErrorMessage)
	}
	return createResult(resp), nil
}

func (g *Gateway) CreateCoupon(ctx context.Context, name string, limits domain.QuotaLimits) (domain.CreateResult, error) {
	req := g.newRequest()
	req.CouponName = name
	req.GlobalTotal = &limits.GlobalTotal
	req.UserTotal = &limits.UserTotal
	req.UserDaily = &limits.UserDaily
	req.UserWeekly = &limits.UserWeekly

	resp, err := g.requestReply(ctx, TopicCreateCouponRequest, []byte(name), req)
	if err != nil {
		return domain.CreateResult{}, err
	}
	if resp.Status == StatusError {
		return domain.CreateResult{}, g.mapError(resp.ErrorCode, resp.ErrorMessage)
	}
	return createResult(resp), nil
}

func (g *Gateway) ApplyCoupon(ctx context.Context, couponName, username string, at time.Time) (domain.RedeemResult, error) {
	req := g.newRequest()
	req.CouponName = couponName
	req.Username = username
	req.RequestTimestamp = &at

	// Key on coupon+user so one pair's requests land on one partition and
	// are evaluated in order.
	key := fmt.Sprintf("%s:%s", couponName, username)
	resp, err := g.requestReply(ctx, TopicApplyRequest, []byte(key), req)
	if err != nil {
		return domain.RedeemResult{}, err
	}
	if resp.Status == StatusError {
		return domain.RedeemResult{}, g.mapError(resp.ErrorCode, resp.ErrorMessage)
	}
	if resp.Apply == nil {
		return domain.RedeemResult{}, errors.New("malformed apply reply")
	}
	return applyResultFromReply(resp.Apply)
}

func (g *Gateway) ListUsers(ctx context.Context) ([]string, error) {
	return nil, errors.New("list users is not served over the event gateway")
}

func (g *Gateway) ListCoupons(ctx context.Context) ([]string, error) {
	return nil, errors.New("list coupons is not served over the event gateway")
}

func (g *Gateway) newRequest() RequestPayload {
	return RequestPayload{
		SchemaVersion: 1,
		CorrelationID: uuid.New().String(),
		ReplyTo:       fmt.Sprintf("%s%s", TopicReplyPrefix, g.cfg.KafkaInstanceID),
	}
}

func (g *Gateway) requestReply(ctx context.Context, topic string, key []byte, req RequestPayload) (*ResponsePayload, error) {
	respChan := make(chan *ResponsePayload, 1)
	g.pendingResp.Store(req.CorrelationID, respChan)
	defer g.pendingResp.Delete(req.CorrelationID)

	payload, _ := json.Marshal(req)
	record := &kgo.Record{
		Topic: topic,
		Key:   key,
		Value: payload,
	}

	if err := g.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return nil, err
	}

	select {
	case resp := <-respChan:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(RequestTimeout):
		return nil, errors.New("timeout waiting for response")
	}
}

func (g *Gateway) HandleResponse(payload []byte) {
	var resp ResponsePayload
	if err := json.Unmarshal(payload, &resp); err != nil {
		log.Error().Err(err).Msg("failed to decode response payload")
		return
	}

	if ch, ok := g.pendingResp.Load(resp.CorrelationID); ok {
		ch.(chan *ResponsePayload) <- &resp
		return
	}

	log.Warn().Str("correlation_id", resp.CorrelationID).Msg("no pending response for correlation id")
}

func (g *Gateway) mapError(code, message string) error {
	switch code {
	case ErrCodeInvalidLimits:
		return domain.ErrInvalidLimits
	case ErrCodeUnavailable:
		return domain.ErrStorageUnavailable
	case ErrCodeAppendUnknown:
		return domain.ErrAppendStatusUnknown
	default:
		return errors.New(message)
	}
}

func createResult(resp *ResponsePayload) domain.CreateResult {
	if resp.Create == nil {
		return domain.CreateResult{}
	}
	return domain.CreateResult{
		Created: resp.Create.Created,
		Code:    domain.ResponseCode(resp.Create.Code),
	}
}

// applyResultFromReply reconstructs the business outcome from a reply. The
// message is the authoritative field; a message outside the known set, or a
// redeemed flag that contradicts it, means the reply cannot be trusted and
// must not be passed off as a real evaluation.
func applyResultFromReply(reply *ApplyReply) (domain.RedeemResult, error) {
	for _, o := range []domain.Outcome{
		domain.OutcomeInvalidUser,
		domain.OutcomeInvalidCoupon,
		domain.OutcomeGlobalExhausted,
		domain.OutcomeUserExhausted,
		domain.OutcomeWeeklyExhausted,
		domain.OutcomeDailyExhausted,
		domain.OutcomeRedeemed,
	} {
		if o.Message() != reply.Message {
			continue
		}
		if reply.Redeemed != o.Redeemed() {
			return domain.RedeemResult{}, fmt.Errorf("inconsistent apply reply: message %q with redeemed=%t", reply.Message, reply.Redeemed)
		}
		return domain.RedeemResult{
			Username:   reply.Username,
			CouponName: reply.CouponName,
			Outcome:    o,
		}, nil
	}
	return domain.RedeemResult{}, fmt.Errorf("unrecognized apply reply message %q", reply.Message)
}

var _ usecase.CouponGateway = (*Gateway)(nil)
