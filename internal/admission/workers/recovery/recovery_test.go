package recovery

// Justification: the sweep is a background loop over every account partition.
// These tests check partition isolation, config gating and the Start/Stop
// lifecycle, which no request-level test can observe.

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"relaygate/internal/admission/config"
	"relaygate/internal/admission/metrics"
	"relaygate/internal/admission/models"
	"relaygate/internal/admission/service/breaker"
	"relaygate/internal/admission/store/registry"
	"relaygate/internal/admission/store/window"
	"relaygate/pkg/testutil"
)

type stubLister struct {
	ids    map[models.AccountType][]string
	failOn map[models.AccountType]error
}

func (l *stubLister) ListAccountIDs(_ context.Context, accountType models.AccountType) ([]string, error) {
	if err := l.failOn[accountType]; err != nil {
		return nil, err
	}
	return l.ids[accountType], nil
}

type stubRecoverer struct {
	mu        sync.Mutex
	checked   []models.AccountKey
	recovered map[string]bool
	failing   map[string]bool
}

func (r *stubRecoverer) CheckAndRecover(_ context.Context, key models.AccountKey) (*models.RecoverResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checked = append(r.checked, key)
	if r.failing[key.ID] {
		return nil, errors.New("registry timeout")
	}
	if r.recovered[key.ID] {
		return &models.RecoverResult{Recovered: true, State: models.BreakerHalfOpen}, nil
	}
	return &models.RecoverResult{State: models.BreakerClosed}, nil
}

func (r *stubRecoverer) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.checked)
}

type RecoverySweepSuite struct {
	suite.Suite
	cfg       *config.Config
	lister    *stubLister
	recoverer *stubRecoverer
	metrics   *metrics.Metrics
	service   *Service
}

func TestRecoverySweepSuite(t *testing.T) {
	suite.Run(t, new(RecoverySweepSuite))
}

func (s *RecoverySweepSuite) SetupTest() {
	s.cfg = config.DefaultConfig()
	s.cfg.CircuitBreaker.Enabled = true
	s.cfg.CircuitBreaker.AutoRecovery = true
	s.lister = &stubLister{ids: map[models.AccountType][]string{}, failOn: map[models.AccountType]error{}}
	s.recoverer = &stubRecoverer{recovered: map[string]bool{}, failing: map[string]bool{}}
	s.metrics = metrics.New(prometheus.NewRegistry())

	svc, err := New(s.recoverer, s.lister, config.NewStatic(s.cfg),
		WithLogger(testutil.DiscardLogger()),
		WithMetrics(s.metrics),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *RecoverySweepSuite) TestCountsPromotionsAcrossPartitions() {
	s.lister.ids[models.AccountTypeClaude] = []string{"c1", "c2"}
	s.lister.ids[models.AccountTypeBedrock] = []string{"b1"}
	s.recoverer.recovered["c2"] = true
	s.recoverer.recovered["b1"] = true

	res, err := s.service.RunOnce(context.Background())
	s.Require().NoError(err)
	s.Equal(3, res.Scanned)
	s.Equal(2, res.Recovered)
	s.Zero(res.Failed)
	s.Equal(models.AccountKey{Type: models.AccountTypeBedrock, ID: "b1"}, s.recoverer.checked[2])
}

func (s *RecoverySweepSuite) TestFailingPartitionDoesNotAbortSweep() {
	s.lister.failOn[models.AccountTypeClaude] = errors.New("scan failed")
	s.lister.ids[models.AccountTypeGemini] = []string{"g1", "g2"}
	s.recoverer.failing["g1"] = true
	s.recoverer.recovered["g2"] = true

	res, err := s.service.RunOnce(context.Background())
	s.Require().NoError(err)
	s.Equal(2, res.Scanned)
	s.Equal(1, res.Failed)
	s.Equal(1, res.Recovered)
}

func (s *RecoverySweepSuite) TestEveryPartitionFailingIsAnError() {
	for _, accountType := range models.AllAccountTypes() {
		s.lister.failOn[accountType] = errors.New("connection refused")
	}
	_, err := s.service.RunOnce(context.Background())
	s.Require().Error(err)
	s.ErrorContains(err, "list claude accounts")
}

func (s *RecoverySweepSuite) TestSkippedWhenDisabled() {
	s.lister.ids[models.AccountTypeClaude] = []string{"c1"}

	s.cfg.CircuitBreaker.AutoRecovery = false
	res, err := s.service.RunOnce(context.Background())
	s.Require().NoError(err)
	s.True(res.Skipped)

	s.cfg.CircuitBreaker.AutoRecovery = true
	s.cfg.CircuitBreaker.Enabled = false
	res, err = s.service.RunOnce(context.Background())
	s.Require().NoError(err)
	s.True(res.Skipped)
	s.Zero(s.recoverer.calls())
}

func (s *RecoverySweepSuite) TestStartStop() {
	s.lister.ids[models.AccountTypeOpenAI] = []string{"o1"}
	s.recoverer.recovered["o1"] = true
	svc, err := New(s.recoverer, s.lister, config.NewStatic(s.cfg),
		WithLogger(testutil.DiscardLogger()),
		WithMetrics(s.metrics),
		WithInterval(5*time.Millisecond),
	)
	s.Require().NoError(err)

	errCh := make(chan error, 1)
	go func() { errCh <- svc.Start(context.Background()) }()

	s.Eventually(func() bool { return s.recoverer.calls() >= 2 }, time.Second, time.Millisecond)
	s.ErrorIs(svc.Start(context.Background()), ErrAlreadyRunning)

	svc.Stop()
	s.NoError(<-errCh)
	s.GreaterOrEqual(promtest.ToFloat64(s.metrics.BreakerSweepRunsTotal.WithLabelValues("success")), 1.0)
	s.GreaterOrEqual(promtest.ToFloat64(s.metrics.BreakerSweepRecoveredTotal), 1.0)

	svc.Stop()
}

func (s *RecoverySweepSuite) TestStartReturnsParentCancellation() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.ErrorIs(s.service.Start(ctx), context.Canceled)
}

// TestSweepPromotesExpiredBreakers runs the sweep against the real breaker on
// an in-process Redis registry.
func TestSweepPromotesExpiredBreakers(t *testing.T) {
	ctx := context.Background()
	_, client := testutil.NewRedis(t)
	clock := testutil.NewClock(time.UnixMilli(1_700_000_000_000))

	cfg := config.DefaultConfig()
	cfg.CircuitBreaker.Enabled = true
	cfg.CircuitBreaker.AutoRecovery = true
	cfg.CircuitBreaker.BreakerDurationMinutes = 30
	provider := config.NewStatic(cfg)

	reg := registry.NewRedis(client)
	brk, err := breaker.New(reg, window.NewRedis(client), provider,
		breaker.WithLogger(testutil.DiscardLogger()), breaker.WithNow(clock.Now))
	require.NoError(t, err)
	t.Cleanup(brk.Stop)

	keys := []models.AccountKey{
		{Type: models.AccountTypeClaude, ID: "early"},
		{Type: models.AccountTypeDroid, ID: "late"},
		{Type: models.AccountTypeCCR, ID: "healthy"},
	}
	for _, key := range keys {
		require.NoError(t, reg.Save(ctx, &models.AccountRecord{Type: key.Type, ID: key.ID, Fields: map[string]string{"name": key.ID}}))
	}
	_, err = brk.Open(ctx, keys[0])
	require.NoError(t, err)
	clock.Advance(10 * time.Minute)
	_, err = brk.Open(ctx, keys[1])
	require.NoError(t, err)

	sweep, err := New(brk, reg, provider, WithLogger(testutil.DiscardLogger()))
	require.NoError(t, err)

	clock.Advance(25 * time.Minute)
	res, err := sweep.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, res.Scanned)
	require.Equal(t, 1, res.Recovered)

	status, err := brk.Status(ctx, keys[1])
	require.NoError(t, err)
	require.Equal(t, models.BreakerOpen, status.State)

	clock.Advance(10 * time.Minute)
	res, err = sweep.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Recovered)
}
