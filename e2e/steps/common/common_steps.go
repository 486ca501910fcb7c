package common

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Start(configYAML string) error
	RegisterAccount(accountType, id string, fields map[string]string) error
	Advance(d time.Duration)
	StoreDown()
	StoreUp()
	POST(path string, body interface{}) error
	GET(path string, headers map[string]string) error
	AdminHeaders() map[string]string
	ResponseContains(field string) bool
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers common step definitions used across features
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	// Background steps
	ctx.Step(`^relaygate is running$`, steps.relaygateIsRunning)
	ctx.Step(`^relaygate is running with:$`, steps.relaygateIsRunningWith)
	ctx.Step(`^account "([^"]*)" is registered$`, steps.accountIsRegistered)
	ctx.Step(`^account "([^"]*)" is registered with field "([^"]*)":$`, steps.accountIsRegisteredWithField)

	// Environment steps
	ctx.Step(`^(\d+) minutes pass$`, steps.minutesPass)
	ctx.Step(`^the shared store becomes unavailable$`, steps.storeDown)
	ctx.Step(`^the shared store recovers$`, steps.storeUp)

	// Generic request steps
	ctx.Step(`^I GET "([^"]*)"$`, steps.get)
	ctx.Step(`^I GET "([^"]*)" as admin$`, steps.getAsAdmin)

	// Response assertion steps
	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, steps.responseShouldContain)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.responseFieldShouldEqual)
	ctx.Step(`^the response field "([^"]*)" should contain "([^"]*)"$`, steps.responseFieldShouldContain)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) relaygateIsRunning(ctx context.Context) error {
	return s.tc.Start("")
}

func (s *commonSteps) relaygateIsRunningWith(ctx context.Context, doc *godog.DocString) error {
	return s.tc.Start(doc.Content)
}

func (s *commonSteps) accountIsRegistered(ctx context.Context, account string) error {
	accountType, id, err := SplitAccount(account)
	if err != nil {
		return err
	}
	return s.tc.RegisterAccount(accountType, id, nil)
}

func (s *commonSteps) accountIsRegisteredWithField(ctx context.Context, account, field string, doc *godog.DocString) error {
	accountType, id, err := SplitAccount(account)
	if err != nil {
		return err
	}
	return s.tc.RegisterAccount(accountType, id, map[string]string{field: strings.TrimSpace(doc.Content)})
}

func (s *commonSteps) minutesPass(ctx context.Context, minutes int) error {
	s.tc.Advance(time.Duration(minutes) * time.Minute)
	return nil
}

func (s *commonSteps) storeDown(ctx context.Context) error {
	s.tc.StoreDown()
	return nil
}

func (s *commonSteps) storeUp(ctx context.Context) error {
	s.tc.StoreUp()
	return nil
}

func (s *commonSteps) get(ctx context.Context, path string) error {
	return s.tc.GET(path, nil)
}

func (s *commonSteps) getAsAdmin(ctx context.Context, path string) error {
	return s.tc.GET(path, s.tc.AdminHeaders())
}

func (s *commonSteps) responseStatusShouldBe(ctx context.Context, expectedStatus int) error {
	actualStatus := s.tc.GetLastResponseStatus()
	if actualStatus != expectedStatus {
		return fmt.Errorf("expected status %d but got %d: %s", expectedStatus, actualStatus, string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *commonSteps) responseShouldContain(ctx context.Context, field string) error {
	if !s.tc.ResponseContains(field) {
		return fmt.Errorf("response does not contain field: %s\nResponse: %s", field, string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *commonSteps) responseFieldShouldEqual(ctx context.Context, field, expectedValue string) error {
	actualValue, err := s.field(field)
	if err != nil {
		return err
	}
	if fmt.Sprint(actualValue) != expectedValue {
		return fmt.Errorf("field %s: expected %s but got %v", field, expectedValue, actualValue)
	}
	return nil
}

func (s *commonSteps) responseFieldShouldContain(ctx context.Context, field, expectedSubstring string) error {
	actualValue, err := s.field(field)
	if err != nil {
		return err
	}
	if !strings.Contains(fmt.Sprint(actualValue), expectedSubstring) {
		return fmt.Errorf("field %s: expected to contain %s but got %v", field, expectedSubstring, actualValue)
	}
	return nil
}

func (s *commonSteps) field(field string) (interface{}, error) {
	var data map[string]interface{}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &data); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	actualValue, ok := data[field]
	if !ok {
		return nil, fmt.Errorf("field %s not found in response: %s", field, string(s.tc.GetLastResponseBody()))
	}
	return actualValue, nil
}

// SplitAccount parses "<type>/<id>".
func SplitAccount(account string) (string, string, error) {
	accountType, id, ok := strings.Cut(account, "/")
	if !ok || accountType == "" || id == "" {
		return "", "", fmt.Errorf("account %q must look like <type>/<id>", account)
	}
	return accountType, id, nil
}
