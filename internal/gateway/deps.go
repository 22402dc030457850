// Package gateway is the composition root's tool/resource layer: it
// builds the mcp.ToolDescriptor/mcp.ResourceDescriptor handlers that
// glue the NLP pipeline, command router, and batch executor together
// behind the fixed catalog described in spec §4.4/§4.3.
package gateway

import (
	"github.com/skywire-labs/drone-nlp-gateway/internal/backend"
	"github.com/skywire-labs/drone-nlp-gateway/internal/executor"
	"github.com/skywire-labs/drone-nlp-gateway/internal/mcp"
	"github.com/skywire-labs/drone-nlp-gateway/internal/monitoring"
	"github.com/skywire-labs/drone-nlp-gateway/internal/nlp"
	"github.com/skywire-labs/drone-nlp-gateway/internal/router"
	"github.com/skywire-labs/drone-nlp-gateway/internal/session"
)

// Deps bundles every already-constructed component a tool/resource
// handler needs. It is built once in cmd/gateway and threaded through
// RegisterTools/RegisterResources — no component looks anything up
// through a global.
type Deps struct {
	Backend  *backend.Client
	Exec     *executor.Executor
	State    *router.StateStore
	NLP      nlp.Config
	Monitor  *monitoring.Registry
	Sessions *session.Manager
}

func manualIntent(action nlp.Action, droneID string, params nlp.Parameters) nlp.ParsedIntent {
	params.TargetDroneID = droneID
	return nlp.ParsedIntent{Action: action, Parameters: params, Confidence: 1, RawText: string(action)}
}

func stringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func intArg(args map[string]interface{}, key string) (*int, bool) {
	v, ok := args[key]
	if !ok {
		return nil, false
	}
	switch n := v.(type) {
	case float64:
		i := int(n)
		return &i, true
	case int:
		return &n, true
	}
	return nil, false
}

// runIntents routes and executes intents under rctx's principal, applying
// each successful command's effect to the shared state snapshot so later
// batches see up-to-date preconditions. policy governs what the executor
// does after a command fails (spec §4.3); rollback-synthesized commands
// come back as extra results with no corresponding plan.Commands entry.
func runIntents(rctx *mcp.RequestContext, deps Deps, intents []nlp.ParsedIntent, policy router.FailurePolicy) ([]executor.ExecutionResult, error) {
	plan, err := router.Build(intents, deps.State, policy)
	if err != nil {
		return nil, err
	}
	results := deps.Exec.Run(rctx.Context, plan, rctx.Principal)
	for i, res := range results {
		if !res.Success || res.Skipped {
			continue
		}
		if i >= len(plan.Commands) {
			deps.State.Apply(res.DroneID, applyCompensatingEffect(res))
			continue
		}
		cmd := plan.Commands[i]
		deps.State.Apply(cmd.DroneID, applyEffect(cmd))
	}
	return results, nil
}

func applyCompensatingEffect(res executor.ExecutionResult) func(router.DroneState) router.DroneState {
	return func(s router.DroneState) router.DroneState {
		if res.Action == "land" {
			s.Flying = false
		}
		return s
	}
}

func applyEffect(cmd router.Command) func(router.DroneState) router.DroneState {
	return func(s router.DroneState) router.DroneState {
		switch nlp.Action(cmd.Action) {
		case nlp.ActionConnect:
			s.Connected = true
		case nlp.ActionDisconnect:
			s.Connected = false
			s.Flying = false
		case nlp.ActionTakeoff:
			s.Flying = true
		case nlp.ActionLand:
			s.Flying = false
		case nlp.ActionAltitudeSet:
			if v, ok := cmd.Args["altitude_cm"].(int); ok {
				s.AltitudeCm = v
			}
		}
		return s
	}
}
