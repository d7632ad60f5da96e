package production

import (
	"context"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	Save(name, field string) error
	Expand(s string) string
}

// RegisterSteps registers evidence, privilege and production step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &productionSteps{tc: tc}

	ctx.Step(`^evidence "([^"]*)" is collected for case "([^"]*)"$`, steps.collectEvidence)
	ctx.Step(`^evidence "([^"]*)" of case "([^"]*)" is logged as "([^"]*)" privileged$`, steps.logPrivilege)
	ctx.Step(`^the privilege entry "([^"]*)" is waived$`, steps.waivePrivilege)
	ctx.Step(`^production "([^"]*)" is created for case "([^"]*)" with prefix "([^"]*)"$`, steps.createProduction)
	ctx.Step(`^production "([^"]*)" is created for case "([^"]*)" with prefix "([^"]*)" starting at (\d+)$`, steps.createProductionAt)
	ctx.Step(`^I add evidence "([^"]*)" to production "([^"]*)"$`, steps.addDocument)
	ctx.Step(`^I add evidence "([^"]*)" to production "([^"]*)" redacted$`, steps.addRedactedDocument)
}

type productionSteps struct {
	tc TestContext
}

func (s *productionSteps) collectEvidence(ctx context.Context, name, caseName string) error {
	err := s.tc.POST("/cases/{"+caseName+"}/evidence", map[string]any{
		"evidenceType": "Document",
		"custodian":    "E2E Custodian",
		"description":  name,
	})
	if err != nil {
		return err
	}
	return s.tc.Save(name, "id")
}

func (s *productionSteps) logPrivilege(ctx context.Context, name, caseName, privilegeType string) error {
	err := s.tc.POST("/cases/{"+caseName+"}/privilege-log", map[string]any{
		"evidenceId":    s.tc.Expand("{" + name + "}"),
		"privilegeType": privilegeType,
		"basis":         "e2e privilege basis",
	})
	if err != nil {
		return err
	}
	return s.tc.Save(name+"-privilege", "id")
}

func (s *productionSteps) waivePrivilege(ctx context.Context, entry string) error {
	return s.tc.POST("/privilege-log/{"+entry+"}/waive", map[string]any{"reason": "e2e waiver"})
}

func (s *productionSteps) createProduction(ctx context.Context, name, caseName, prefix string) error {
	return s.create(name, caseName, map[string]any{"name": name, "batesPrefix": prefix})
}

func (s *productionSteps) createProductionAt(ctx context.Context, name, caseName, prefix string, start int) error {
	return s.create(name, caseName, map[string]any{"name": name, "batesPrefix": prefix, "batesStartNumber": start})
}

func (s *productionSteps) create(name, caseName string, body map[string]any) error {
	if err := s.tc.POST("/cases/{"+caseName+"}/productions", body); err != nil {
		return err
	}
	// A rejected create has no id; the scenario asserts on the status instead.
	_ = s.tc.Save(name, "id")
	return nil
}

func (s *productionSteps) addDocument(ctx context.Context, evidence, production string) error {
	return s.add(evidence, production, false)
}

func (s *productionSteps) addRedactedDocument(ctx context.Context, evidence, production string) error {
	return s.add(evidence, production, true)
}

func (s *productionSteps) add(evidence, production string, redacted bool) error {
	return s.tc.POST("/productions/{"+production+"}/documents", map[string]any{
		"evidenceId": s.tc.Expand("{" + evidence + "}"),
		"pageCount":  1,
		"redacted":   redacted,
	})
}
