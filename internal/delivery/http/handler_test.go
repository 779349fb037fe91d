package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redeemd/coupon-engine/internal/domain"
)

type mockGateway struct {
	createUserFn   func(ctx context.Context, username string) (domain.CreateResult, error)
	createCouponFn func(ctx context.Context, name string, limits domain.QuotaLimits) (domain.CreateResult, error)
	applyCouponFn  func(ctx context.Context, couponName, username string, at time.Time) (domain.RedeemResult, error)
	listUsersFn    func(ctx context.Context) ([]string, error)
	listCouponsFn  func(ctx context.Context) ([]string, error)
}

func (m *mockGateway) CreateUser(ctx context.Context, username string) (domain.CreateResult, error) {
	return m.createUserFn(ctx, username)
}

func (m *mockGateway) CreateCoupon(ctx context.Context, name string, limits domain.QuotaLimits) (domain.CreateResult, error) {
	return m.createCouponFn(ctx, name, limits)
}

func (m *mockGateway) ApplyCoupon(ctx context.Context, couponName, username string, at time.Time) (domain.RedeemResult, error) {
	return m.applyCouponFn(ctx, couponName, username, at)
}

func (m *mockGateway) ListUsers(ctx context.Context) ([]string, error) {
	return m.listUsersFn(ctx)
}

func (m *mockGateway) ListCoupons(ctx context.Context) ([]string, error) {
	return m.listCouponsFn(ctx)
}

func newTestRouter(gw *mockGateway) http.Handler {
	r := chi.NewRouter()
	NewHandler(gw).Routes(r)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString(body)
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHeartbeat(t *testing.T) {
	rec := doJSON(t, newTestRouter(&mockGateway{}), http.MethodGet, "/healthcheck", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp HeartbeatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.IsAlive {
		t.Fatal("expected is_alive true")
	}
	if resp.AppName == "" || resp.Version == "" {
		t.Fatal("expected app name and version to be set")
	}
}

func TestCreateUser_Created(t *testing.T) {
	gw := &mockGateway{
		createUserFn: func(ctx context.Context, username string) (domain.CreateResult, error) {
			if username != "alice" {
				t.Fatalf("unexpected username %q", username)
			}
			return domain.CreateResult{Created: true, ID: 1, Code: domain.CodeRecordCreateSuccess}, nil
		},
	}

	rec := doJSON(t, newTestRouter(gw), http.MethodPost, "/create/user", `{"username":"alice"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp CreateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Created || resp.Code != int(domain.CodeRecordCreateSuccess) {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestCreateUser_Duplicate(t *testing.T) {
	gw := &mockGateway{
		createUserFn: func(ctx context.Context, username string) (domain.CreateResult, error) {
			return domain.CreateResult{Created: false, Code: domain.CodeRecordAlreadyExists}, nil
		},
	}

	rec := doJSON(t, newTestRouter(gw), http.MethodPost, "/create/user", `{"username":"alice"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	var resp CreateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Created || resp.Code != int(domain.CodeRecordAlreadyExists) {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestCreateUser_MissingUsername(t *testing.T) {
	rec := doJSON(t, newTestRouter(&mockGateway{}), http.MethodPost, "/create/user", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateUser_MalformedBody(t *testing.T) {
	rec := doJSON(t, newTestRouter(&mockGateway{}), http.MethodPost, "/create/user", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateCoupon_DefaultsAppliedForOmittedLimits(t *testing.T) {
	var got domain.QuotaLimits
	gw := &mockGateway{
		createCouponFn: func(ctx context.Context, name string, limits domain.QuotaLimits) (domain.CreateResult, error) {
			got = limits
			return domain.CreateResult{Created: true, ID: 2, Code: domain.CodeRecordCreateSuccess}, nil
		},
	}

	rec := doJSON(t, newTestRouter(gw), http.MethodPost, "/create/coupon", `{"name":"SAVE10","user_total":5}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	want := domain.DefaultLimits()
	want.UserTotal = 5
	if got != want {
		t.Fatalf("expected limits %+v, got %+v", want, got)
	}
}

func TestCreateCoupon_ZeroLimitIsNotDefaulted(t *testing.T) {
	var got domain.QuotaLimits
	gw := &mockGateway{
		createCouponFn: func(ctx context.Context, name string, limits domain.QuotaLimits) (domain.CreateResult, error) {
			got = limits
			return domain.CreateResult{Created: true, Code: domain.CodeRecordCreateSuccess}, nil
		},
	}

	doJSON(t, newTestRouter(gw), http.MethodPost, "/create/coupon", `{"name":"NEVER","global_total":0}`)
	if got.GlobalTotal != 0 {
		t.Fatalf("explicit zero must not fall back to the default, got %d", got.GlobalTotal)
	}
}

func TestCreateCoupon_NegativeLimits(t *testing.T) {
	gw := &mockGateway{
		createCouponFn: func(ctx context.Context, name string, limits domain.QuotaLimits) (domain.CreateResult, error) {
			return domain.CreateResult{Code: domain.CodeInvalidArgument}, domain.ErrInvalidLimits
		},
	}

	rec := doJSON(t, newTestRouter(gw), http.MethodPost, "/create/coupon", `{"name":"BAD","user_total":-1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestApplyCoupon_Redeemed(t *testing.T) {
	gw := &mockGateway{
		applyCouponFn: func(ctx context.Context, couponName, username string, at time.Time) (domain.RedeemResult, error) {
			return domain.RedeemResult{
				Username:   username,
				CouponName: couponName,
				Outcome:    domain.OutcomeRedeemed,
			}, nil
		},
	}

	rec := doJSON(t, newTestRouter(gw), http.MethodPost, "/apply/coupon",
		`{"coupon_name":"SAVE10","username":"alice"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp ApplyCouponResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Redeemed {
		t.Fatal("expected redeemed true")
	}
	if resp.Message != "Redeemed discount" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
	if resp.Username != "alice" || resp.CouponName != "SAVE10" {
		t.Fatalf("unexpected echo %+v", resp)
	}
}

func TestApplyCoupon_RefusalMessages(t *testing.T) {
	cases := []struct {
		outcome domain.Outcome
		message string
	}{
		{domain.OutcomeInvalidUser, "Not a valid user"},
		{domain.OutcomeInvalidCoupon, "Not a valid coupon"},
		{domain.OutcomeGlobalExhausted, "Coupon has been exhausted"},
		{domain.OutcomeUserExhausted, "User has exhausted the number of times he/she can use a particular coupon"},
		{domain.OutcomeWeeklyExhausted, "User has exhausted the number of times he/she can use a particular coupon in a week"},
		{domain.OutcomeDailyExhausted, "User has exhausted the number of times he/she can use a particular coupon in a day"},
	}

	for _, tc := range cases {
		t.Run(tc.outcome.String(), func(t *testing.T) {
			gw := &mockGateway{
				applyCouponFn: func(ctx context.Context, couponName, username string, at time.Time) (domain.RedeemResult, error) {
					return domain.RedeemResult{Username: username, CouponName: couponName, Outcome: tc.outcome}, nil
				},
			}

			rec := doJSON(t, newTestRouter(gw), http.MethodPost, "/apply/coupon",
				`{"coupon_name":"SAVE10","username":"alice"}`)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}

			var resp ApplyCouponResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Redeemed {
				t.Fatal("expected redeemed false")
			}
			if resp.Message != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, resp.Message)
			}
		})
	}
}

func TestApplyCoupon_TimestampForwarded(t *testing.T) {
	want := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	var got time.Time
	gw := &mockGateway{
		applyCouponFn: func(ctx context.Context, couponName, username string, at time.Time) (domain.RedeemResult, error) {
			got = at
			return domain.RedeemResult{Outcome: domain.OutcomeRedeemed}, nil
		},
	}

	doJSON(t, newTestRouter(gw), http.MethodPost, "/apply/coupon",
		`{"coupon_name":"SAVE10","username":"alice","request_timestamp":"2024-01-10T12:00:00Z"}`)
	if !got.Equal(want) {
		t.Fatalf("expected timestamp %v, got %v", want, got)
	}
}

func TestApplyCoupon_ServerClockWhenTimestampOmitted(t *testing.T) {
	var got time.Time
	gw := &mockGateway{
		applyCouponFn: func(ctx context.Context, couponName, username string, at time.Time) (domain.RedeemResult, error) {
			got = at
			return domain.RedeemResult{Outcome: domain.OutcomeRedeemed}, nil
		},
	}

	before := time.Now().UTC()
	doJSON(t, newTestRouter(gw), http.MethodPost, "/apply/coupon",
		`{"coupon_name":"SAVE10","username":"alice"}`)
	after := time.Now().UTC()

	if got.Before(before) || got.After(after) {
		t.Fatalf("expected server clock between %v and %v, got %v", before, after, got)
	}
	if got.Location() != time.UTC {
		t.Fatalf("expected UTC, got %v", got.Location())
	}
}

func TestApplyCoupon_StorageUnavailable(t *testing.T) {
	gw := &mockGateway{
		applyCouponFn: func(ctx context.Context, couponName, username string, at time.Time) (domain.RedeemResult, error) {
			return domain.RedeemResult{}, fmt.Errorf("%w: connection refused", domain.ErrStorageUnavailable)
		},
	}

	rec := doJSON(t, newTestRouter(gw), http.MethodPost, "/apply/coupon",
		`{"coupon_name":"SAVE10","username":"alice"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestApplyCoupon_AppendStatusUnknown(t *testing.T) {
	gw := &mockGateway{
		applyCouponFn: func(ctx context.Context, couponName, username string, at time.Time) (domain.RedeemResult, error) {
			return domain.RedeemResult{}, fmt.Errorf("%w: connection reset", domain.ErrAppendStatusUnknown)
		},
	}

	rec := doJSON(t, newTestRouter(gw), http.MethodPost, "/apply/coupon",
		`{"coupon_name":"SAVE10","username":"alice"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestApplyCoupon_MissingFields(t *testing.T) {
	rec := doJSON(t, newTestRouter(&mockGateway{}), http.MethodPost, "/apply/coupon", `{"username":"alice"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListUsers(t *testing.T) {
	gw := &mockGateway{
		listUsersFn: func(ctx context.Context) ([]string, error) {
			return []string{"alice", "bob"}, nil
		},
	}

	rec := doJSON(t, newTestRouter(gw), http.MethodGet, "/read/all/user", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp ListUsersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(resp.Users))
	}
}

func TestListCoupons_EmptyIsArrayNotNull(t *testing.T) {
	gw := &mockGateway{
		listCouponsFn: func(ctx context.Context) ([]string, error) {
			return nil, nil
		},
	}

	rec := doJSON(t, newTestRouter(gw), http.MethodGet, "/read/all/coupon", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"coupons":[]`)) {
		t.Fatalf("expected empty array, got %s", rec.Body.String())
	}
}
