package flow

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// recordingExecutor replays canned results per tool and records call order.
type recordingExecutor struct {
	results map[string]map[string]interface{}
	errs    map[string]error
	calls   []string
	args    map[string]map[string]interface{}
}

func newRecordingExecutor() *recordingExecutor {
	return &recordingExecutor{
		results: make(map[string]map[string]interface{}),
		errs:    make(map[string]error),
		args:    make(map[string]map[string]interface{}),
	}
}

func (e *recordingExecutor) Execute(_ context.Context, toolName string, args map[string]interface{}) (map[string]interface{}, error) {
	e.calls = append(e.calls, toolName)
	e.args[toolName] = args
	if err, ok := e.errs[toolName]; ok {
		return nil, err
	}
	if res, ok := e.results[toolName]; ok {
		return res, nil
	}
	return map[string]interface{}{}, nil
}

func stepResult(t *testing.T, fctx map[string]interface{}, step string) map[string]interface{} {
	t.Helper()
	results, ok := fctx[KeyFlowResults].(map[string]interface{})
	if !ok {
		t.Fatalf("missing %s in context", KeyFlowResults)
	}
	entry, ok := results[step].(map[string]interface{})
	if !ok {
		t.Fatalf("missing result for step %s: %v", step, results)
	}
	return entry
}

func executedSteps(t *testing.T, fctx map[string]interface{}) []string {
	t.Helper()
	steps, _ := fctx[KeyExecutedSteps].([]string)
	return steps
}

func TestStepSkippedWhenRequiredArgMissing(t *testing.T) {
	f := NewFlow("t",
		MustStep(StepConfig{Name: "a", Tool: "a", RequiredArgs: []string{"missing_key"}}),
		MustStep(StepConfig{Name: "b", Tool: "b"}),
	)
	exec := newRecordingExecutor()

	fctx := f.Execute(context.Background(), exec, map[string]interface{}{})

	if got := stepResult(t, fctx, "a")["status"]; got != StatusSkipped {
		t.Errorf("step a status = %v, want skipped", got)
	}
	if got := stepResult(t, fctx, "b")["status"]; got != StatusSuccess {
		t.Errorf("step b status = %v, want success (skip must not halt)", got)
	}
	if steps := executedSteps(t, fctx); len(steps) != 1 || steps[0] != "b" {
		t.Errorf("executed steps = %v, want [b]", steps)
	}
}

func TestStepSkippedWhenPreconditionFalse(t *testing.T) {
	f := NewFlow("t",
		MustStep(StepConfig{Name: "gated", Tool: "gated", Precondition: `ready ?? false`}),
	)
	exec := newRecordingExecutor()

	fctx := f.Execute(context.Background(), exec, map[string]interface{}{})

	if len(exec.calls) != 0 {
		t.Errorf("gated step called despite false precondition: %v", exec.calls)
	}
	if got := stepResult(t, fctx, "gated")["status"]; got != StatusSkipped {
		t.Errorf("status = %v, want skipped", got)
	}
}

func TestPostconditionFailureHaltsFlow(t *testing.T) {
	f := NewFlow("t",
		MustStep(StepConfig{Name: "check", Tool: "check", Postcondition: `result.valid ?? false`}),
		MustStep(StepConfig{Name: "after", Tool: "after"}),
	)
	exec := newRecordingExecutor()
	exec.results["check"] = map[string]interface{}{"valid": false}

	fctx := f.Execute(context.Background(), exec, map[string]interface{}{})

	if got := stepResult(t, fctx, "check")["status"]; got != StatusValidationFailed {
		t.Errorf("status = %v, want validation_failed", got)
	}
	for _, call := range exec.calls {
		if call == "after" {
			t.Error("flow must halt after a postcondition failure")
		}
	}
	if steps := executedSteps(t, fctx); len(steps) != 0 {
		t.Errorf("executed steps = %v, want none", steps)
	}
}

func TestToolErrorHaltsFlow(t *testing.T) {
	f := NewFlow("t",
		MustStep(StepConfig{Name: "boom", Tool: "boom"}),
		MustStep(StepConfig{Name: "after", Tool: "after"}),
	)
	exec := newRecordingExecutor()
	exec.errs["boom"] = fmt.Errorf("backend unavailable")

	fctx := f.Execute(context.Background(), exec, map[string]interface{}{})

	entry := stepResult(t, fctx, "boom")
	if entry["status"] != StatusError {
		t.Errorf("status = %v, want error", entry["status"])
	}
	if entry["error"] != "backend unavailable" {
		t.Errorf("error = %v", entry["error"])
	}
	if len(exec.calls) != 1 {
		t.Errorf("calls = %v, want only boom", exec.calls)
	}
}

func TestBuildArgsOmitsMissingOptional(t *testing.T) {
	s := MustStep(StepConfig{
		Name:         "s",
		Tool:         "s",
		RequiredArgs: []string{"account_number"},
		OptionalArgs: []string{"mobile_number"},
	})

	args := s.BuildArgs(map[string]interface{}{"account_number": "1311002345678"})
	if _, ok := args["mobile_number"]; ok {
		t.Error("missing optional arg must be omitted, not defaulted")
	}
	if args["account_number"] != "1311002345678" {
		t.Errorf("required arg = %v", args["account_number"])
	}
}

func TestManagerUnknownFlow(t *testing.T) {
	m := NewManager(nil)
	_, err := m.ExecuteFlow(context.Background(), newRecordingExecutor(), "no_such_flow", nil)
	if !errors.Is(err, ErrFlowNotFound) {
		t.Errorf("error = %v, want ErrFlowNotFound", err)
	}
}

func TestAuthenticationFlowHappyPath(t *testing.T) {
	m := NewManager(nil)
	exec := newRecordingExecutor()
	exec.results["validate_account"] = map[string]interface{}{"valid": true, "account_status": "OPERATIVE", "account_number": "1311002345678"}
	exec.results["validate_pin"] = map[string]interface{}{"valid": true}
	exec.results["get_account_details"] = map[string]interface{}{"balance": 1250.75, "currency": "BDT"}

	fctx, err := m.ExecuteFlow(context.Background(), exec, "authentication", map[string]interface{}{
		"account_number": "1311002345678",
		"pin":            "1234",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	want := []string{"validate_account", "validate_pin", "get_account_details"}
	got := executedSteps(t, fctx)
	if len(got) != len(want) {
		t.Fatalf("executed steps = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("executed steps = %v, want %v", got, want)
		}
	}

	details, ok := fctx["account_details"].(map[string]interface{})
	if !ok || details["balance"] != 1250.75 {
		t.Errorf("account_details = %v", fctx["account_details"])
	}
}

func TestAuthenticationFlowStopsAtInvalidAccount(t *testing.T) {
	m := NewManager(nil)
	exec := newRecordingExecutor()
	exec.results["validate_account"] = map[string]interface{}{"valid": false}

	fctx, err := m.ExecuteFlow(context.Background(), exec, "authentication", map[string]interface{}{
		"account_number": "9999999999999",
		"pin":            "1234",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	for _, call := range exec.calls {
		if call == "validate_pin" || call == "get_account_details" {
			t.Errorf("tool %s invoked for an invalid account", call)
		}
	}
	if got := stepResult(t, fctx, "validate_pin")["status"]; got != StatusSkipped {
		t.Errorf("validate_pin status = %v, want skipped", got)
	}
}

func TestAccountQueryFlowCurrencyEnrichment(t *testing.T) {
	m := NewManager(nil)
	exec := newRecordingExecutor()
	exec.results["get_account_field"] = map[string]interface{}{"found": true, "field": "currency", "value": "BDT"}
	exec.results["get_currency_details"] = map[string]interface{}{"status": "success", "code": "BDT", "name": "Bangladeshi Taka", "symbol": "৳"}

	fctx, err := m.ExecuteFlow(context.Background(), exec, "account_query", map[string]interface{}{
		"account_number": "1311002345678",
		"field_name":     "currency",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if _, ok := fctx["currency_details"]; !ok {
		t.Error("currency details step should have run and merged its result")
	}
	if got := stepResult(t, fctx, "get_account_type_details")["status"]; got != StatusSkipped {
		t.Errorf("account type step status = %v, want skipped for a currency query", got)
	}
	if args := exec.args["get_currency_details"]; args["currency_code"] != "BDT" {
		t.Errorf("currency step args = %v", args)
	}
}

func TestAccountQueryFlowBalanceDoesNotEnrich(t *testing.T) {
	m := NewManager(nil)
	exec := newRecordingExecutor()
	exec.results["get_account_field"] = map[string]interface{}{"found": true, "field": "balance", "value": 1250.75}

	fctx, err := m.ExecuteFlow(context.Background(), exec, "account_query", map[string]interface{}{
		"account_number": "1311002345678",
		"field_name":     "balance",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if steps := executedSteps(t, fctx); len(steps) != 1 || steps[0] != "get_account_field" {
		t.Errorf("executed steps = %v, want only get_account_field", steps)
	}
	if fctx["field_value"] != 1250.75 {
		t.Errorf("field_value = %v", fctx["field_value"])
	}
}
