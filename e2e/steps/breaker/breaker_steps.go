package breaker

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
	AdminHeaders() map[string]string
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers the admin-side circuit breaker steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &breakerSteps{tc: tc}

	ctx.Step(`^the breaker for "([^"]*)" should be "([^"]*)"$`, steps.breakerShouldBe)
	ctx.Step(`^the breaker for "([^"]*)" should count (\d+) errors?$`, steps.breakerShouldCount)
	ctx.Step(`^an admin (opens|closes) the breaker for "([^"]*)"$`, steps.adminTransition)
	ctx.Step(`^the recovery sweep runs$`, steps.sweepRuns)
	ctx.Step(`^the sweep should report (\d+) recovered of (\d+) scanned$`, steps.sweepShouldReport)
}

type breakerSteps struct {
	tc TestContext
}

func adminPath(account string) (string, error) {
	accountType, id, err := common.SplitAccount(account)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("/admin/accounts/%s/%s/breaker", accountType, id), nil
}

func (s *breakerSteps) status(account string) (map[string]interface{}, error) {
	path, err := adminPath(account)
	if err != nil {
		return nil, err
	}
	if err := s.tc.GET(path, s.tc.AdminHeaders()); err != nil {
		return nil, err
	}
	if s.tc.GetLastResponseStatus() != 200 {
		return nil, fmt.Errorf("breaker status returned %d: %s", s.tc.GetLastResponseStatus(), string(s.tc.GetLastResponseBody()))
	}
	var body map[string]interface{}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &body); err != nil {
		return nil, fmt.Errorf("failed to parse breaker status: %w", err)
	}
	return body, nil
}

func (s *breakerSteps) breakerShouldBe(ctx context.Context, account, state string) error {
	body, err := s.status(account)
	if err != nil {
		return err
	}
	if body["state"] != state {
		return fmt.Errorf("breaker for %s: expected %s but got %v", account, state, body["state"])
	}
	return nil
}

func (s *breakerSteps) breakerShouldCount(ctx context.Context, account string, count int) error {
	body, err := s.status(account)
	if err != nil {
		return err
	}
	if got := body["error_count"]; got != float64(count) {
		return fmt.Errorf("breaker for %s: expected %d errors but got %v", account, count, got)
	}
	return nil
}

func (s *breakerSteps) adminTransition(ctx context.Context, action, account string) error {
	path, err := adminPath(account)
	if err != nil {
		return err
	}
	verb := "open"
	if action == "closes" {
		verb = "close"
	}
	return s.tc.POSTWithHeaders(path+"/"+verb, nil, s.tc.AdminHeaders())
}

func (s *breakerSteps) sweepRuns(ctx context.Context) error {
	return s.tc.POSTWithHeaders("/admin/breakers/sweep", nil, s.tc.AdminHeaders())
}

func (s *breakerSteps) sweepShouldReport(ctx context.Context, recovered, scanned int) error {
	var body struct {
		Scanned   int `json:"scanned"`
		Recovered int `json:"recovered"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &body); err != nil {
		return fmt.Errorf("failed to parse sweep result %q: %w", string(s.tc.GetLastResponseBody()), err)
	}
	if body.Scanned != scanned || body.Recovered != recovered {
		return fmt.Errorf("expected %d recovered of %d scanned, got %d of %d", recovered, scanned, body.Recovered, body.Scanned)
	}
	return nil
}
