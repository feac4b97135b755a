package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrFlowNotFound is returned when executing an unregistered flow name.
var ErrFlowNotFound = errors.New("flow not found")

// Manager holds the registered flows. Flows are registered once at startup
// and read-only afterwards.
type Manager struct {
	flows  map[string]*Flow
	logger *slog.Logger
}

// NewManager creates a flow manager with the standard flows registered.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		flows:  make(map[string]*Flow),
		logger: logger,
	}
	m.Register(authenticationFlow())
	m.Register(accountQueryFlow())
	return m
}

// Register adds a flow, replacing any flow with the same name.
func (m *Manager) Register(f *Flow) {
	m.flows[f.Name()] = f
}

// Get returns a registered flow.
func (m *Manager) Get(name string) (*Flow, bool) {
	f, ok := m.flows[name]
	return f, ok
}

// ExecuteFlow runs the named flow against the executor with the initial
// context.
func (m *Manager) ExecuteFlow(ctx context.Context, exec Executor, name string, initial map[string]interface{}) (map[string]interface{}, error) {
	f, ok := m.flows[name]
	if !ok {
		return nil, fmt.Errorf("execute flow %q: %w", name, ErrFlowNotFound)
	}

	result := f.Execute(ctx, exec, initial)
	if executed, ok := result[KeyExecutedSteps].([]string); ok {
		m.logger.Debug("flow executed", "flow", name, "executed_steps", executed)
	}
	return result, nil
}

// authenticationFlow validates an account, then the PIN, then fetches the
// account details once the PIN checks out.
func authenticationFlow() *Flow {
	return NewFlow("authentication",
		MustStep(StepConfig{
			Name:         "validate_account",
			Tool:         "validate_account",
			RequiredArgs: []string{"account_number"},
			OptionalArgs: []string{"mobile_number", "call_id"},
			Extract: func(result map[string]interface{}) map[string]interface{} {
				out := map[string]interface{}{
					"account_valid": result["valid"] == true,
				}
				if status, ok := result["account_status"]; ok && status != nil {
					out["account_status"] = status
				}
				// The tool resolves short fragments to the full number.
				if full, ok := result["account_number"].(string); ok && full != "" {
					out["account_number"] = full
				}
				return out
			},
		}),
		MustStep(StepConfig{
			Name:         "validate_pin",
			Tool:         "validate_pin",
			RequiredArgs: []string{"account_number", "pin"},
			OptionalArgs: []string{"mobile_number", "call_id"},
			Precondition: `(account_valid ?? false) && !(pin_valid ?? false)`,
			Extract: func(result map[string]interface{}) map[string]interface{} {
				return map[string]interface{}{"pin_valid": result["valid"] == true}
			},
		}),
		MustStep(StepConfig{
			Name:         "get_account_details",
			Tool:         "get_account_details",
			RequiredArgs: []string{"account_number"},
			OptionalArgs: []string{"mobile_number", "call_id"},
			Precondition: `pin_valid ?? false`,
			Extract: func(result map[string]interface{}) map[string]interface{} {
				return map[string]interface{}{"account_details": result}
			},
		}),
	)
}

// accountQueryFlow looks up one field of an authenticated account, enriching
// currency and account-type answers from the metadata tables.
func accountQueryFlow() *Flow {
	return NewFlow("account_query",
		MustStep(StepConfig{
			Name:         "get_account_field",
			Tool:         "get_account_field",
			RequiredArgs: []string{"account_number", "field_name"},
			OptionalArgs: []string{"mobile_number", "call_id"},
			Extract: func(result map[string]interface{}) map[string]interface{} {
				out := map[string]interface{}{
					"field_found": result["found"] == true,
					"field_value": result["value"],
				}
				// Downstream metadata steps take the code as their argument.
				if code, ok := result["value"].(string); ok {
					out["currency_code"] = code
					out["account_type"] = code
				}
				return out
			},
		}),
		MustStep(StepConfig{
			Name:         "get_currency_details",
			Tool:         "get_currency_details",
			RequiredArgs: []string{"currency_code"},
			Precondition: `(field_name ?? "") == "currency" && (field_found ?? false) && (currency_code ?? "") != ""`,
			Extract: func(result map[string]interface{}) map[string]interface{} {
				return map[string]interface{}{"currency_details": result}
			},
		}),
		MustStep(StepConfig{
			Name:         "get_account_type_details",
			Tool:         "get_account_type_details",
			RequiredArgs: []string{"account_type"},
			Precondition: `(field_name ?? "") == "account_type" && (field_found ?? false) && (account_type ?? "") != ""`,
			Extract: func(result map[string]interface{}) map[string]interface{} {
				return map[string]interface{}{"account_type_details": result}
			},
		}),
	)
}
