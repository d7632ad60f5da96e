package common

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	Status() int
	Body() string
	Field(path string) (any, error)
	ErrorCode() string
	Save(name, field string) error
	Set(name, value string)
	Expand(s string) string
}

// RegisterSteps registers generic request and assertion steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^a new case "([^"]*)"$`, steps.newCase)
	ctx.Step(`^I GET "([^"]*)"$`, steps.get)
	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.fieldShouldEqual)
	ctx.Step(`^the error code should be "([^"]*)"$`, steps.errorCodeShouldBe)
	ctx.Step(`^I remember "([^"]*)" as "([^"]*)"$`, steps.remember)
}

type commonSteps struct {
	tc TestContext
}

// newCase mints a random case id so scenarios never share a Bates series.
func (s *commonSteps) newCase(ctx context.Context, name string) error {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return err
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	s.tc.Set(name, fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:]))
	return nil
}

func (s *commonSteps) get(ctx context.Context, path string) error {
	return s.tc.GET(path)
}

func (s *commonSteps) statusShouldBe(ctx context.Context, want int) error {
	if got := s.tc.Status(); got != want {
		return fmt.Errorf("expected status %d, got %d: %s", want, got, s.tc.Body())
	}
	return nil
}

func (s *commonSteps) fieldShouldEqual(ctx context.Context, field, want string) error {
	v, err := s.tc.Field(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != s.tc.Expand(want) {
		return fmt.Errorf("expected %s to be %q, got %q", field, want, got)
	}
	return nil
}

func (s *commonSteps) errorCodeShouldBe(ctx context.Context, want string) error {
	if got := s.tc.ErrorCode(); got != want {
		return fmt.Errorf("expected error code %q, got %q: %s", want, got, s.tc.Body())
	}
	return nil
}

func (s *commonSteps) remember(ctx context.Context, field, name string) error {
	return s.tc.Save(name, field)
}
