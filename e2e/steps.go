package e2e

import (
	"github.com/cucumber/godog"

	"evidex/e2e/steps/common"
	"evidex/e2e/steps/production"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Generic requests and assertions
	common.RegisterSteps(ctx, tc)

	// Evidence, privilege and Bates steps
	production.RegisterSteps(ctx, tc)
}
