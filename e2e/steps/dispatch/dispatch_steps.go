package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cucumber/godog"

	"relaygate/e2e/steps/common"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POSTWithHeaders(path string, body interface{}, headers map[string]string) error
	GET(path string, headers map[string]string) error
	DELETE(path string, headers map[string]string) error
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers the relay-facing admission steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &dispatchSteps{tc: tc}

	ctx.Step(`^pacing allows (\d+)ms of wait with a (\d+)ms minimum interval$`, steps.pacingParameters)
	ctx.Step(`^I admit request "([^"]*)" on "([^"]*)"$`, steps.admit)
	ctx.Step(`^I admit (\d+) requests on "([^"]*)"$`, steps.admitMany)
	ctx.Step(`^the request should be admitted$`, steps.shouldBeAdmitted)
	ctx.Step(`^the request should be rejected with "([^"]*)"$`, steps.shouldBeRejectedWith)
	ctx.Step(`^all requests should be admitted$`, steps.allAdmitted)
	ctx.Step(`^"([^"]*)" sends a request outside admission$`, steps.recordActivity)
	ctx.Step(`^I finish request "([^"]*)" on "([^"]*)"$`, steps.finish)
	ctx.Step(`^upstream answers (\d+) for "([^"]*)"$`, steps.upstreamAnswers)
	ctx.Step(`^upstream answers (\d+) for "([^"]*)" (\d+) times$`, steps.upstreamAnswersTimes)
	ctx.Step(`^"([^"]*)" should be eligible$`, steps.shouldBeEligible)
	ctx.Step(`^"([^"]*)" should not be eligible$`, steps.shouldNotBeEligible)
}

type dispatchSteps struct {
	tc TestContext
	// pacing is sent with every admit when set.
	pacing   map[string]int
	admitted []bool
}

type admitBody struct {
	Admitted bool   `json:"admitted"`
	Reason   string `json:"reason"`
}

func accountPath(account string) (string, error) {
	accountType, id, err := common.SplitAccount(account)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("/v1/accounts/%s/%s", accountType, id), nil
}

func (s *dispatchSteps) pacingParameters(ctx context.Context, maxWaitMs, minIntervalMs int) error {
	s.pacing = map[string]int{"max_wait_ms": maxWaitMs, "min_interval_ms": minIntervalMs}
	return nil
}

func (s *dispatchSteps) admit(ctx context.Context, requestID, account string) error {
	path, err := accountPath(account)
	if err != nil {
		return err
	}
	var body interface{}
	if s.pacing != nil {
		body = s.pacing
	}
	return s.tc.POSTWithHeaders(path+"/admit", body, map[string]string{"X-Request-ID": requestID})
}

func (s *dispatchSteps) recordActivity(ctx context.Context, account string) error {
	path, err := accountPath(account)
	if err != nil {
		return err
	}
	if err := s.tc.POSTWithHeaders(path+"/activity", nil, nil); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 204 {
		return fmt.Errorf("expected 204 recording activity, got %d: %s", status, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *dispatchSteps) admitMany(ctx context.Context, n int, account string) error {
	s.admitted = s.admitted[:0]
	for i := range n {
		if err := s.admit(ctx, fmt.Sprintf("bulk-%d", i), account); err != nil {
			return err
		}
		res, err := s.decode()
		if err != nil {
			return err
		}
		s.admitted = append(s.admitted, res.Admitted)
	}
	return nil
}

func (s *dispatchSteps) decode() (*admitBody, error) {
	var res admitBody
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &res); err != nil {
		return nil, fmt.Errorf("failed to parse admit response %q: %w", string(s.tc.GetLastResponseBody()), err)
	}
	return &res, nil
}

func (s *dispatchSteps) shouldBeAdmitted(ctx context.Context) error {
	res, err := s.decode()
	if err != nil {
		return err
	}
	if !res.Admitted {
		return fmt.Errorf("expected admission, got reason %q", res.Reason)
	}
	return nil
}

func (s *dispatchSteps) shouldBeRejectedWith(ctx context.Context, reason string) error {
	if status := s.tc.GetLastResponseStatus(); status != 429 {
		return fmt.Errorf("expected status 429 but got %d", status)
	}
	res, err := s.decode()
	if err != nil {
		return err
	}
	if res.Admitted || res.Reason != reason {
		return fmt.Errorf("expected rejection %q, got admitted=%v reason=%q", reason, res.Admitted, res.Reason)
	}
	return nil
}

func (s *dispatchSteps) allAdmitted(ctx context.Context) error {
	for i, ok := range s.admitted {
		if !ok {
			return fmt.Errorf("request %d of %d was not admitted", i+1, len(s.admitted))
		}
	}
	return nil
}

func (s *dispatchSteps) finish(ctx context.Context, requestID, account string) error {
	path, err := accountPath(account)
	if err != nil {
		return err
	}
	return s.tc.DELETE(path+"/slots/"+requestID, nil)
}

func (s *dispatchSteps) upstreamAnswers(ctx context.Context, status int, account string) error {
	path, err := accountPath(account)
	if err != nil {
		return err
	}
	return s.tc.POSTWithHeaders(path+"/responses", map[string]int{"status": status}, nil)
}

func (s *dispatchSteps) upstreamAnswersTimes(ctx context.Context, status int, account string, times int) error {
	for range times {
		if err := s.upstreamAnswers(ctx, status, account); err != nil {
			return err
		}
	}
	return nil
}

func (s *dispatchSteps) eligibility(account string) (bool, error) {
	path, err := accountPath(account)
	if err != nil {
		return false, err
	}
	if err := s.tc.GET(path+"/eligibility", nil); err != nil {
		return false, err
	}
	var res struct {
		Eligible bool `json:"eligible"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &res); err != nil {
		return false, fmt.Errorf("failed to parse eligibility: %w", err)
	}
	return res.Eligible, nil
}

func (s *dispatchSteps) shouldBeEligible(ctx context.Context, account string) error {
	ok, err := s.eligibility(account)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s is not eligible: %s", account, string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *dispatchSteps) shouldNotBeEligible(ctx context.Context, account string) error {
	ok, err := s.eligibility(account)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%s is unexpectedly eligible", account)
	}
	return nil
}
