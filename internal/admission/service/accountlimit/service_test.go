package accountlimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"relaygate/internal/admission/config"
	"relaygate/internal/admission/metrics"
	"relaygate/internal/admission/models"
	"relaygate/internal/admission/ports"
	"relaygate/internal/admission/ports/mocks"
	"relaygate/internal/admission/store/registry"
	"relaygate/internal/admission/store/window"
	dErrors "relaygate/pkg/domain-errors"
	"relaygate/pkg/testutil"
)

// Justification: the sliding window, queue timeout and backoff schedule are
// time-driven. Sleeps advance a fake clock so a 60 second window can be
// exercised instantly, and miniredis runs the real window script.

type AccountLimitSuite struct {
	suite.Suite
	mr       *miniredis.Miniredis
	clock    *testutil.Clock
	cfg      *config.Config
	registry *registry.InMemoryStore
	service  *Service
	slept    []time.Duration
}

func TestAccountLimitSuite(t *testing.T) {
	suite.Run(t, new(AccountLimitSuite))
}

func (s *AccountLimitSuite) SetupTest() {
	mr, client := testutil.NewRedis(s.T())
	s.mr = mr
	s.clock = testutil.NewClock(time.UnixMilli(1_700_000_000_000))
	s.slept = nil
	s.registry = registry.NewMemory()

	s.cfg = config.DefaultConfig()
	s.cfg.RateLimit.Enabled = true
	s.cfg.RateLimit.WindowSeconds = 60
	s.cfg.RateLimit.MaxRequests = 20
	s.cfg.RateLimit.EnableQueueing = false

	s.service = s.newService(window.NewRedis(client))
}

func (s *AccountLimitSuite) newService(store ports.WindowStore) *Service {
	svc, err := New(store, config.NewStatic(s.cfg),
		WithRegistry(s.registry),
		WithLogger(testutil.DiscardLogger()),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
		WithNow(s.clock.Now),
		WithRandom(func() float64 { return 0.5 }),
		WithSleep(func(_ context.Context, d time.Duration) error {
			s.slept = append(s.slept, d)
			s.clock.Advance(d)
			return nil
		}),
	)
	s.Require().NoError(err)
	return svc
}

func (s *AccountLimitSuite) key(id string) models.AccountKey {
	return models.AccountKey{Type: models.AccountTypeOpenAI, ID: id}
}

func (s *AccountLimitSuite) fill(key models.AccountKey, n int) {
	for i := 0; i < n; i++ {
		res, err := s.service.Acquire(context.Background(), key, "")
		s.Require().NoError(err)
		s.Require().True(res.Acquired, "fill request %d", i)
		s.clock.Advance(time.Second)
	}
}

func (s *AccountLimitSuite) TestDisabledSkips() {
	s.cfg.RateLimit.Enabled = false
	res, err := s.service.Acquire(context.Background(), s.key("a"), "req-1")
	s.Require().NoError(err)
	s.True(res.Acquired)
	s.True(res.Skipped)
	s.Equal("req-1", res.RequestID)
}

func (s *AccountLimitSuite) TestGeneratesRequestID() {
	res, err := s.service.Acquire(context.Background(), s.key("a"), "")
	s.Require().NoError(err)
	s.Len(res.RequestID, 36)
}

func (s *AccountLimitSuite) TestWindowFullWithoutQueueingIsRejected() {
	key := s.key("no-queue")
	s.fill(key, 20)

	res, err := s.service.Acquire(context.Background(), key, "")
	s.Require().NoError(err)
	s.False(res.Acquired)
	s.Equal(models.ErrRateLimitExceeded, res.Error)
	s.Empty(s.slept)
}

func (s *AccountLimitSuite) TestQueueFailsFastWhenCapacityIsBeyondTimeout() {
	s.cfg.RateLimit.EnableQueueing = true
	s.cfg.RateLimit.QueueTimeoutMs = 30000
	key := s.key("too-far")
	s.fill(key, 20)

	// oldest entry frees up 40s from now, beyond the 30s budget
	res, err := s.service.Acquire(context.Background(), key, "")
	s.Require().NoError(err)
	s.False(res.Acquired)
	s.Equal(models.ErrQueueTimeout, res.Error)
	s.Empty(s.slept, "no sleep when the wait cannot fit the budget")
}

func (s *AccountLimitSuite) TestQueueWaitsForOldestEntry() {
	s.cfg.RateLimit.EnableQueueing = true
	s.cfg.RateLimit.QueueTimeoutMs = 90000
	key := s.key("queued")
	s.fill(key, 20)

	res, err := s.service.Acquire(context.Background(), key, "late")
	s.Require().NoError(err)
	s.True(res.Acquired)
	s.Equal(1, res.Retries)
	s.Equal([]time.Duration{40 * time.Second}, s.slept)
	s.Equal(40*time.Second, res.Waited)
}

func (s *AccountLimitSuite) TestQueueNeverExceedsTimeout() {
	ctrl := gomock.NewController(s.T())
	store := mocks.NewMockWindowStore(ctrl)
	store.EXPECT().TryAdd(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&models.WindowAttempt{Admitted: false, Count: 20}, nil).AnyTimes()

	s.cfg.RateLimit.EnableQueueing = true
	s.cfg.RateLimit.QueueTimeoutMs = 200
	svc := s.newService(store)

	res, err := svc.Acquire(context.Background(), s.key("polling"), "")
	s.Require().NoError(err)
	s.False(res.Acquired)
	s.Equal(models.ErrQueueTimeout, res.Error)
	s.Equal([]time.Duration{50 * time.Millisecond, 75 * time.Millisecond, 75 * time.Millisecond}, s.slept,
		"backoff grows by 1.5x and the last sleep is capped to the remaining budget")
	s.LessOrEqual(res.Waited, 200*time.Millisecond)
}

func (s *AccountLimitSuite) TestPollingAdmitsWhenCapacityAppears() {
	ctrl := gomock.NewController(s.T())
	store := mocks.NewMockWindowStore(ctrl)
	full := &models.WindowAttempt{Admitted: false, Count: 20}
	gomock.InOrder(
		store.EXPECT().TryAdd(gomock.Any(), "account_rate_limit:openai:poll", "req#attempt", gomock.Any(), time.Minute, 20).Return(full, nil),
		store.EXPECT().TryAdd(gomock.Any(), "account_rate_limit:openai:poll", "req#attempt", gomock.Any(), time.Minute, 20).Return(full, nil),
		store.EXPECT().TryAdd(gomock.Any(), "account_rate_limit:openai:poll", "req#attempt", gomock.Any(), time.Minute, 20).
			Return(&models.WindowAttempt{Admitted: true, Count: 20}, nil),
	)

	s.cfg.RateLimit.EnableQueueing = true
	svc := s.newService(store)
	svc.newID = func() string { return "attempt" }

	res, err := svc.Acquire(context.Background(), s.key("poll"), "req")
	s.Require().NoError(err)
	s.True(res.Acquired)
	s.Equal(2, res.Retries)
	s.Equal(125*time.Millisecond, res.Waited)
}

func (s *AccountLimitSuite) TestBackendErrorFailsClosed() {
	s.mr.SetError("LOADING")
	res, err := s.service.Acquire(context.Background(), s.key("down"), "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Require().NotNil(res)
	s.False(res.Acquired)
	s.Equal(models.ErrBackendError, res.Error)
}

func (s *AccountLimitSuite) TestAccountOverride() {
	s.cfg.RateLimit.Enabled = false
	key := s.key("override")
	s.Require().NoError(s.registry.Save(context.Background(), &models.AccountRecord{
		Type: key.Type, ID: key.ID,
		Fields: map[string]string{models.FieldRateLimitConfig: `{"enabled":true,"maxRequests":2}`},
	}))

	s.fill(key, 2)
	res, err := s.service.Acquire(context.Background(), key, "")
	s.Require().NoError(err)
	s.Equal(models.ErrRateLimitExceeded, res.Error)

	other, err := s.service.Acquire(context.Background(), s.key("no-override"), "")
	s.Require().NoError(err)
	s.True(other.Skipped)
}

func (s *AccountLimitSuite) TestInvalidOverrideUsesGlobal() {
	key := s.key("bad-override")
	s.Require().NoError(s.registry.Save(context.Background(), &models.AccountRecord{
		Type: key.Type, ID: key.ID, Fields: map[string]string{models.FieldRateLimitConfig: `{nope`},
	}))
	s.Equal(s.cfg.RateLimit, s.service.ResolveConfig(context.Background(), key))
}

func (s *AccountLimitSuite) TestReleaseAndStatus() {
	ctx := context.Background()
	key := s.key("release")
	s.fill(key, 19)
	res, err := s.service.Acquire(ctx, key, "last")
	s.Require().NoError(err)
	s.Require().True(res.Acquired)

	status, err := s.service.Status(ctx, key)
	s.Require().NoError(err)
	s.Equal(20, status.CurrentCount)
	s.True(status.IsLimited)
	s.Require().NotNil(status.OldestRequest)
	s.Equal(time.UnixMilli(1_700_000_000_000), *status.OldestRequest)

	removed, err := s.service.Release(ctx, key, "last")
	s.Require().NoError(err)
	s.True(removed)

	removed, err = s.service.Release(ctx, key, "last")
	s.Require().NoError(err)
	s.False(removed)

	status, err = s.service.Status(ctx, key)
	s.Require().NoError(err)
	s.Equal(19, status.CurrentCount)
	s.False(status.IsLimited)
}

func (s *AccountLimitSuite) TestReusedRequestIDIsStillLimited() {
	ctx := context.Background()
	s.cfg.RateLimit.MaxRequests = 2
	key := s.key("same-id")

	admitted := 0
	for i := 0; i < 10; i++ {
		res, err := s.service.Acquire(ctx, key, "same-id")
		s.Require().NoError(err)
		if res.Acquired {
			admitted++
		} else {
			s.Equal(models.ErrRateLimitExceeded, res.Error)
		}
	}
	s.Equal(2, admitted)

	status, err := s.service.Status(ctx, key)
	s.Require().NoError(err)
	s.Equal(2, status.CurrentCount)

	// each release frees one of the two slots taken under the id
	for range 2 {
		removed, err := s.service.Release(ctx, key, "same-id")
		s.Require().NoError(err)
		s.True(removed)
	}
	removed, err := s.service.Release(ctx, key, "same-id")
	s.Require().NoError(err)
	s.False(removed)
}

func (s *AccountLimitSuite) TestReleaseRequiresRequestID() {
	_, err := s.service.Release(context.Background(), s.key("x"), "")
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *AccountLimitSuite) TestConcurrentAcquisitionsNeverExceedLimit() {
	key := s.key("contended")
	result := testutil.RunConcurrent(40, func(int) error {
		res, err := s.service.Acquire(context.Background(), key, "")
		if err != nil {
			return err
		}
		if !res.Acquired {
			return dErrors.New(dErrors.CodeRateLimited, string(res.Error))
		}
		return nil
	})
	s.Equal(int32(20), result.Successes)
	s.Equal(int32(20), result.Limited)
	s.Equal(int32(40), result.Total())
}
