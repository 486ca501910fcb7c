package breaker

import (
	"context"
	"strconv"
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

// Justification: cooldowns are measured in minutes and the error window in
// seconds. A fake clock keeps those scenarios exact, and miniredis runs the
// real registry and window scripts so failure injection covers the fallback.

type BreakerSuite struct {
	suite.Suite
	mr       *miniredis.Miniredis
	registry *registry.RedisStore
	clock    *testutil.Clock
	cfg      *config.Config
	service  *Service
}

func TestBreakerSuite(t *testing.T) {
	suite.Run(t, new(BreakerSuite))
}

func (s *BreakerSuite) SetupTest() {
	s.clock = testutil.NewClock(time.UnixMilli(1_700_000_000_000))
	s.cfg = config.DefaultConfig()
	s.cfg.CircuitBreaker.Enabled = true
	s.cfg.CircuitBreaker.Threshold = 3
	s.cfg.CircuitBreaker.WindowSeconds = 300
	s.cfg.CircuitBreaker.BreakerDurationMinutes = 30
	s.mr, s.registry, s.service = s.newStack()
}

func (s *BreakerSuite) newStack() (*miniredis.Miniredis, *registry.RedisStore, *Service) {
	mr, client := testutil.NewRedis(s.T())
	reg := registry.NewRedis(client)
	return mr, reg, s.newService(reg, window.NewRedis(client))
}

func (s *BreakerSuite) newService(reg ports.AccountRegistry, errs ports.WindowStore) *Service {
	svc, err := New(reg, errs, config.NewStatic(s.cfg),
		WithLogger(testutil.DiscardLogger()),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
		WithNow(s.clock.Now),
	)
	s.Require().NoError(err)
	s.T().Cleanup(svc.Stop)
	return svc
}

func (s *BreakerSuite) key(id string) models.AccountKey {
	return models.AccountKey{Type: models.AccountTypeClaude, ID: id}
}

func (s *BreakerSuite) seed(reg *registry.RedisStore, key models.AccountKey, fields map[string]string) {
	if fields == nil {
		fields = map[string]string{"name": key.ID}
	}
	s.Require().NoError(reg.Save(context.Background(), &models.AccountRecord{Type: key.Type, ID: key.ID, Fields: fields}))
}

func (s *BreakerSuite) record(svc *Service, key models.AccountKey, n int) *models.RecordErrorResult {
	var res *models.RecordErrorResult
	for i := 0; i < n; i++ {
		var err error
		res, err = svc.Record403Error(context.Background(), key)
		s.Require().NoError(err)
		s.clock.Advance(time.Second)
	}
	return res
}

func (s *BreakerSuite) TestDisabledRecordsNothing() {
	s.cfg.CircuitBreaker.Enabled = false
	key := s.key("off")
	s.seed(s.registry, key, nil)

	res, err := s.service.Record403Error(context.Background(), key)
	s.Require().NoError(err)
	s.Equal(models.BreakerDisabled, res.State)
	s.False(res.Triggered)
	s.False(s.mr.Exists(key.ErrorWindowKey()))
}

func (s *BreakerSuite) TestThresholdOpensOnlyTheFailingAccount() {
	a, b := s.key("a"), s.key("b")
	s.seed(s.registry, a, nil)
	s.seed(s.registry, b, nil)

	first := s.record(s.service, a, 2)
	s.False(first.Triggered)
	s.Equal(models.BreakerClosed, first.State)
	s.Equal(2, first.ErrorCount)

	third := s.record(s.service, a, 1)
	s.True(third.Triggered)
	s.Equal(models.BreakerOpen, third.State)
	s.Equal(3, third.ErrorCount)
	s.Equal(3, third.Threshold)

	other := s.record(s.service, b, 1)
	s.False(other.Triggered)
	s.Equal(1, other.ErrorCount)

	status, err := s.service.Status(context.Background(), a)
	s.Require().NoError(err)
	s.Equal(models.BreakerOpen, status.State)
	s.Require().NotNil(status.OpenAt)
	s.Require().NotNil(status.OpenUntil)
	s.True(status.OpenUntil.After(*status.OpenAt))
	s.Require().NotNil(status.RemainingMs)
}

func (s *BreakerSuite) TestErrorsOutsideWindowDoNotCount() {
	key := s.key("slow")
	s.seed(s.registry, key, nil)

	s.record(s.service, key, 2)
	s.clock.Advance(301 * time.Second)

	res := s.record(s.service, key, 1)
	s.False(res.Triggered)
	s.Equal(1, res.ErrorCount)
}

func (s *BreakerSuite) TestCooldownPromotesToHalfOpen() {
	key := s.key("cooldown")
	s.seed(s.registry, key, nil)

	_, err := s.service.Open(context.Background(), key)
	s.Require().NoError(err)
	opened := s.clock.Now()

	s.clock.Set(opened.Add(29 * time.Minute))
	res, err := s.service.CheckAndRecover(context.Background(), key)
	s.Require().NoError(err)
	s.False(res.Recovered)
	s.Equal(models.BreakerOpen, res.State)
	s.Equal(time.Minute, res.Remaining)

	s.clock.Set(opened.Add(31 * time.Minute))
	res, err = s.service.CheckAndRecover(context.Background(), key)
	s.Require().NoError(err)
	s.True(res.Recovered)
	s.Equal(models.BreakerHalfOpen, res.State)

	res, err = s.service.CheckAndRecover(context.Background(), key)
	s.Require().NoError(err)
	s.False(res.Recovered, "only open breakers are promoted")
	s.Equal(models.BreakerHalfOpen, res.State)

	status, err := s.service.Status(context.Background(), key)
	s.Require().NoError(err)
	s.Equal(models.BreakerHalfOpen, status.State)
	s.Nil(status.RemainingMs)
}

func (s *BreakerSuite) TestCloseIsIdempotent() {
	key := s.key("close")
	s.seed(s.registry, key, nil)
	s.record(s.service, key, 3)

	for i := 0; i < 2; i++ {
		s.Require().NoError(s.service.Close(context.Background(), key))

		record, err := s.registry.Get(context.Background(), key)
		s.Require().NoError(err)
		s.Equal("closed", record.Fields[models.FieldBreakerState])
		s.NotContains(record.Fields, models.FieldBreakerOpenAt)
		s.NotContains(record.Fields, models.FieldBreakerOpenUntil)
		s.Equal(key.ID, record.Fields["name"], "unrelated fields are untouched")
	}

	status, err := s.service.Status(context.Background(), key)
	s.Require().NoError(err)
	s.Equal(models.BreakerClosed, status.State)
	s.Zero(status.ErrorCount)
	s.Nil(status.OpenAt)
	s.Nil(status.OpenUntil)
}

func (s *BreakerSuite) TestHalfOpenKeepsHistoryAndBreachReopens() {
	key := s.key("reopen")
	s.seed(s.registry, key, nil)
	s.record(s.service, key, 3)

	s.Require().NoError(s.service.HalfOpen(context.Background(), key))
	status, err := s.service.Status(context.Background(), key)
	s.Require().NoError(err)
	s.Equal(models.BreakerHalfOpen, status.State)
	s.Equal(3, status.ErrorCount)

	res := s.record(s.service, key, 1)
	s.True(res.Triggered)
	s.Equal(models.BreakerOpen, res.State)
	s.Equal(4, res.ErrorCount)
}

func (s *BreakerSuite) TestBelowThresholdReportsClosed() {
	key := s.key("forced")
	s.seed(s.registry, key, nil)
	_, err := s.service.Open(context.Background(), key)
	s.Require().NoError(err)

	res := s.record(s.service, key, 1)
	s.False(res.Triggered)
	s.Equal(models.BreakerClosed, res.State)
	s.Equal(1, res.ErrorCount)

	status, err := s.service.Status(context.Background(), key)
	s.Require().NoError(err)
	s.Equal(models.BreakerOpen, status.State, "recording below the threshold does not change the stored state")
}

func (s *BreakerSuite) TestAccountOverride() {
	strict := s.key("strict")
	s.seed(s.registry, strict, map[string]string{models.FieldBreakerConfig: `{"threshold":1,"breakerDurationMinutes":5}`})

	res := s.record(s.service, strict, 1)
	s.True(res.Triggered)
	status, err := s.service.Status(context.Background(), strict)
	s.Require().NoError(err)
	s.Equal(5, status.DurationMinutes)
	s.Equal(300, status.WindowSeconds)

	exempt := s.key("exempt")
	s.seed(s.registry, exempt, map[string]string{models.FieldBreakerConfig: `{"enabled":false}`})
	res = s.record(s.service, exempt, 1)
	s.Equal(models.BreakerDisabled, res.State)

	broken := s.key("broken")
	s.seed(s.registry, broken, map[string]string{models.FieldBreakerConfig: `{not json`})
	s.Equal(s.cfg.CircuitBreaker, s.service.ResolveConfig(context.Background(), broken))
}

func (s *BreakerSuite) TestUnknownAccountCannotOpen() {
	s.cfg.CircuitBreaker.Threshold = 1
	_, err := s.service.Record403Error(context.Background(), s.key("ghost"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *BreakerSuite) TestInvalidKey() {
	_, err := s.service.Record403Error(context.Background(), models.AccountKey{Type: models.AccountTypeClaude})
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

type decision struct {
	Triggered bool
	State     models.BreakerState
	Recovered bool
}

// scenario crosses the threshold and then checks the cooldown either side of
// its end, returning each observable decision.
func (s *BreakerSuite) scenario(svc *Service, key models.AccountKey) []decision {
	var out []decision
	start := s.clock.Now()
	for i := 0; i < 3; i++ {
		res, err := svc.Record403Error(context.Background(), key)
		s.Require().NoError(err)
		out = append(out, decision{Triggered: res.Triggered, State: res.State})
	}
	for _, at := range []time.Duration{29 * time.Minute, 31 * time.Minute, 32 * time.Minute} {
		s.clock.Set(start.Add(at))
		res, err := svc.CheckAndRecover(context.Background(), key)
		s.Require().NoError(err)
		out = append(out, decision{State: res.State, Recovered: res.Recovered})
	}
	return out
}

func (s *BreakerSuite) TestFallbackMatchesStoreDecisions() {
	key := s.key("equivalence")
	s.seed(s.registry, key, nil)
	start := s.clock.Now()
	healthy := s.scenario(s.service, key)

	s.clock.Set(start)
	mr, reg, svc := s.newStack()
	s.seed(reg, key, nil)
	mr.SetError("READONLY")
	degraded := s.scenario(svc, key)

	s.Equal(healthy, degraded)
	s.Equal(decision{State: models.BreakerHalfOpen, Recovered: true}, degraded[4])
}

func (s *BreakerSuite) TestStoreIsAuthoritativeAfterOutage() {
	key := s.key("outage")
	s.seed(s.registry, key, nil)
	_, err := s.service.Open(context.Background(), key)
	s.Require().NoError(err)

	s.clock.Advance(31 * time.Minute)
	s.mr.SetError("LOADING")
	res, err := s.service.CheckAndRecover(context.Background(), key)
	s.Require().NoError(err)
	s.True(res.Recovered, "the mirrored record recovers locally")

	s.mr.SetError("")
	record, err := s.registry.Get(context.Background(), key)
	s.Require().NoError(err)
	s.Equal("open", record.Fields[models.FieldBreakerState])

	res, err = s.service.CheckAndRecover(context.Background(), key)
	s.Require().NoError(err)
	s.True(res.Recovered, "the shared record is promoted once reachable")
}

func (s *BreakerSuite) TestConcurrentRecoveryPromotesOnce() {
	key := s.key("race")
	s.seed(s.registry, key, nil)
	_, err := s.service.Open(context.Background(), key)
	s.Require().NoError(err)
	s.clock.Advance(31 * time.Minute)

	results := make([]*models.RecoverResult, 10)
	testutil.RunConcurrent(10, func(idx int) error {
		res, err := s.service.CheckAndRecover(context.Background(), key)
		results[idx] = res
		return err
	})

	recovered := 0
	for _, res := range results {
		s.Require().NotNil(res)
		s.Equal(models.BreakerHalfOpen, res.State)
		if res.Recovered {
			recovered++
		}
	}
	s.Equal(1, recovered)
}

func (s *BreakerSuite) TestLostRaceReportsCurrentState() {
	ctrl := gomock.NewController(s.T())
	reg := mocks.NewMockAccountRegistry(ctrl)
	key := s.key("mocked")
	openUntil := s.clock.Now().Add(-time.Minute).UnixMilli()
	open := &models.AccountRecord{Type: key.Type, ID: key.ID, Fields: map[string]string{
		models.FieldBreakerState:     "open",
		models.FieldBreakerOpenUntil: strconv.FormatInt(openUntil, 10),
	}}
	halfOpen := &models.AccountRecord{Type: key.Type, ID: key.ID, Fields: map[string]string{
		models.FieldBreakerState: "half_open",
	}}

	gomock.InOrder(
		reg.EXPECT().Get(gomock.Any(), key).Return(open, nil),
		reg.EXPECT().CompareAndUpdate(gomock.Any(), key, map[string]string{
			models.FieldBreakerState:     "open",
			models.FieldBreakerOpenUntil: strconv.FormatInt(openUntil, 10),
		}, gomock.Any()).Return(false, nil),
		reg.EXPECT().Get(gomock.Any(), key).Return(halfOpen, nil),
	)

	errs := window.NewMemory(time.Minute)
	s.T().Cleanup(errs.Close)
	svc := s.newService(reg, errs)
	res, err := svc.CheckAndRecover(context.Background(), key)
	s.Require().NoError(err)
	s.False(res.Recovered)
	s.Equal(models.BreakerHalfOpen, res.State)
}
