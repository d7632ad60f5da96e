package e2e

import (
	"context"
	"os"
	"testing"

	"github.com/cucumber/godog"
)

// TestFeatures runs the feature files against EVIDEX_BASE_URL, e.g.
//
//	EVIDEX_BASE_URL=http://localhost:8080 go test ./...
func TestFeatures(t *testing.T) {
	baseURL := os.Getenv("EVIDEX_BASE_URL")
	if baseURL == "" {
		t.Skip("EVIDEX_BASE_URL not set")
	}
	tc := NewTestContext(baseURL)

	suite := godog.TestSuite{
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
				tc.Reset()
				return ctx, nil
			})
			RegisterSteps(ctx, tc)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("feature scenarios failed")
	}
}
