package gateway

import (
	"github.com/skywire-labs/drone-nlp-gateway/internal/apperrors"
	"github.com/skywire-labs/drone-nlp-gateway/internal/executor"
	"github.com/skywire-labs/drone-nlp-gateway/internal/mcp"
	"github.com/skywire-labs/drone-nlp-gateway/internal/monitoring"
	"github.com/skywire-labs/drone-nlp-gateway/internal/nlp"
	"github.com/skywire-labs/drone-nlp-gateway/internal/router"
	"github.com/skywire-labs/drone-nlp-gateway/internal/security"
)

// resultPayload is the JSON-friendly projection of an ExecutionResult.
type resultPayload struct {
	CommandID    string             `json:"command_id"`
	DroneID      string             `json:"drone_id"`
	Action       string             `json:"action"`
	Success      bool               `json:"success"`
	Skipped      bool               `json:"skipped,omitempty"`
	Response     interface{}        `json:"response,omitempty"`
	Error        *apperrors.RPCData `json:"error,omitempty"`
	Attempts     int                `json:"attempts"`
	Compensating bool               `json:"compensating,omitempty"`
}

func toPayload(res executor.ExecutionResult) resultPayload {
	p := resultPayload{
		CommandID: res.CommandID, DroneID: res.DroneID, Action: res.Action,
		Success: res.Success, Skipped: res.Skipped, Response: res.Response, Attempts: res.Attempts,
		Compensating: res.Compensating,
	}
	if res.Error != nil {
		_, _, data := apperrors.ToJSONRPC(res.Error)
		p.Error = data
	}
	return p
}

func payloads(results []executor.ExecutionResult) []resultPayload {
	out := make([]resultPayload, 0, len(results))
	for _, r := range results {
		out = append(out, toPayload(r))
	}
	return out
}

func requireDroneID(args map[string]interface{}) (string, error) {
	id := stringArg(args, "drone_id")
	if id == "" {
		return "", apperrors.New(apperrors.KindInvalidParams, "drone_id is required")
	}
	return id, nil
}

// RegisterTools registers the fixed nine-tool catalog (spec §4.4).
func RegisterTools(catalog *mcp.Catalog, deps Deps) {
	catalog.RegisterTool(mcp.ToolDescriptor{
		Name: "connect_drone", Description: "Connect to a drone by id.",
		InputSchema: droneIDSchema(), MinRole: security.RoleOperator,
		Handler: func(rctx *mcp.RequestContext, args map[string]interface{}) (interface{}, error) {
			droneID, err := requireDroneID(args)
			if err != nil {
				return nil, err
			}
			results, err := runIntents(rctx, deps, []nlp.ParsedIntent{manualIntent(nlp.ActionConnect, droneID, nlp.Parameters{})}, router.FailurePolicyStopOnError)
			if err != nil {
				return nil, err
			}
			return payloads(results), nil
		},
	})

	catalog.RegisterTool(mcp.ToolDescriptor{
		Name: "disconnect_drone", Description: "Disconnect from a drone by id.",
		InputSchema: droneIDSchema(), MinRole: security.RoleOperator,
		Handler: func(rctx *mcp.RequestContext, args map[string]interface{}) (interface{}, error) {
			droneID, err := requireDroneID(args)
			if err != nil {
				return nil, err
			}
			results, err := runIntents(rctx, deps, []nlp.ParsedIntent{manualIntent(nlp.ActionDisconnect, droneID, nlp.Parameters{})}, router.FailurePolicyStopOnError)
			if err != nil {
				return nil, err
			}
			return payloads(results), nil
		},
	})

	catalog.RegisterTool(mcp.ToolDescriptor{
		Name: "takeoff", Description: "Take off with a connected drone.",
		InputSchema: droneIDSchema(), MinRole: security.RoleOperator,
		Handler: func(rctx *mcp.RequestContext, args map[string]interface{}) (interface{}, error) {
			droneID, err := requireDroneID(args)
			if err != nil {
				return nil, err
			}
			results, err := runIntents(rctx, deps, []nlp.ParsedIntent{manualIntent(nlp.ActionTakeoff, droneID, nlp.Parameters{})}, router.FailurePolicyStopOnError)
			if err != nil {
				return nil, err
			}
			return payloads(results), nil
		},
	})

	catalog.RegisterTool(mcp.ToolDescriptor{
		Name: "land", Description: "Land a flying drone.",
		InputSchema: droneIDSchema(), MinRole: security.RoleOperator,
		Handler: func(rctx *mcp.RequestContext, args map[string]interface{}) (interface{}, error) {
			droneID, err := requireDroneID(args)
			if err != nil {
				return nil, err
			}
			results, err := runIntents(rctx, deps, []nlp.ParsedIntent{manualIntent(nlp.ActionLand, droneID, nlp.Parameters{})}, router.FailurePolicyStopOnError)
			if err != nil {
				return nil, err
			}
			return payloads(results), nil
		},
	})

	catalog.RegisterTool(mcp.ToolDescriptor{
		Name: "move", Description: "Move a flying drone in a direction by a distance in centimeters.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"drone_id":    map[string]interface{}{"type": "string"},
				"direction":   map[string]interface{}{"type": "string"},
				"distance_cm": map[string]interface{}{"type": "integer"},
			},
			"required": []string{"drone_id", "direction", "distance_cm"},
		},
		MinRole: security.RoleOperator,
		Handler: func(rctx *mcp.RequestContext, args map[string]interface{}) (interface{}, error) {
			droneID, err := requireDroneID(args)
			if err != nil {
				return nil, err
			}
			direction := stringArg(args, "direction")
			if direction == "" {
				return nil, apperrors.New(apperrors.KindInvalidParams, "direction is required")
			}
			distance, _ := intArg(args, "distance_cm")
			results, err := runIntents(rctx, deps, []nlp.ParsedIntent{
				manualIntent(nlp.ActionMove, droneID, nlp.Parameters{Direction: direction, DistanceCm: distance}),
			}, router.FailurePolicyStopOnError)
			if err != nil {
				return nil, err
			}
			return payloads(results), nil
		},
	})

	catalog.RegisterTool(mcp.ToolDescriptor{
		Name: "rotate", Description: "Rotate a flying drone by an angle in degrees.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"drone_id":           map[string]interface{}{"type": "string"},
				"rotation_direction": map[string]interface{}{"type": "string"},
				"angle_deg":          map[string]interface{}{"type": "integer"},
			},
			"required": []string{"drone_id", "rotation_direction", "angle_deg"},
		},
		MinRole: security.RoleOperator,
		Handler: func(rctx *mcp.RequestContext, args map[string]interface{}) (interface{}, error) {
			droneID, err := requireDroneID(args)
			if err != nil {
				return nil, err
			}
			rotationDir := stringArg(args, "rotation_direction")
			if rotationDir == "" {
				return nil, apperrors.New(apperrors.KindInvalidParams, "rotation_direction is required")
			}
			angle, _ := intArg(args, "angle_deg")
			results, err := runIntents(rctx, deps, []nlp.ParsedIntent{
				manualIntent(nlp.ActionRotate, droneID, nlp.Parameters{RotationDirection: rotationDir, AngleDeg: angle}),
			}, router.FailurePolicyStopOnError)
			if err != nil {
				return nil, err
			}
			return payloads(results), nil
		},
	})

	catalog.RegisterTool(mcp.ToolDescriptor{
		Name: "take_photo", Description: "Capture a photo from a flying drone.",
		InputSchema: droneIDSchema(), MinRole: security.RoleOperator,
		Handler: func(rctx *mcp.RequestContext, args map[string]interface{}) (interface{}, error) {
			droneID, err := requireDroneID(args)
			if err != nil {
				return nil, err
			}
			results, err := runIntents(rctx, deps, []nlp.ParsedIntent{manualIntent(nlp.ActionPhoto, droneID, nlp.Parameters{})}, router.FailurePolicyStopOnError)
			if err != nil {
				return nil, err
			}
			return payloads(results), nil
		},
	})

	catalog.RegisterTool(mcp.ToolDescriptor{
		Name: "execute_natural_language_command",
		Description: "Parse free-text Japanese or English text into one or more drone commands and execute them in order.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"text":     map[string]interface{}{"type": "string"},
				"drone_id": map[string]interface{}{"type": "string"},
			},
			"required": []string{"text"},
		},
		MinRole: security.RoleOperator,
		Handler: func(rctx *mcp.RequestContext, args map[string]interface{}) (interface{}, error) {
			text := stringArg(args, "text")
			droneID := stringArg(args, "drone_id")

			ok, cleaned := security.Sanitize(text)
			if !ok {
				deps.Monitor.RecordSecurityEvent(monitoring.SecurityEvent{
					Kind: "nl_input_rejected", Severity: monitoring.SeverityMedium,
					PrincipalID: rctx.Principal.ID, Description: "rejected suspicious natural-language input",
				})
				return nil, apperrors.New(apperrors.KindInvalidParams, "text contains control characters, shell metacharacters, or path traversal sequences")
			}
			text = cleaned

			intents, err := nlp.Parse(text, droneID, deps.NLP)
			if err != nil {
				deps.Monitor.ObserveNLPConfidence(0)
				return nil, toAppError(err)
			}
			for _, intent := range intents {
				deps.Monitor.ObserveNLPConfidence(intent.Confidence)
			}
			// Multi-step natural-language utterances are the one dispatch
			// path where a post-takeoff failure can leave a drone airborne
			// with no further commands to land it, so C3 builds this batch
			// with rollback's compensating-land policy (spec §4.3).
			results, err := runIntents(rctx, deps, intents, router.FailurePolicyRollback)
			if err != nil {
				return nil, err
			}
			return payloads(results), nil
		},
	})

	catalog.RegisterTool(mcp.ToolDescriptor{
		Name: "emergency_stop", Description: "Immediately stop a drone. drone_id is required; a call without it is rejected as invalid_params (there is no fleet-wide stop).",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"drone_id": map[string]interface{}{"type": "string"},
			},
		},
		MinRole: security.RoleReadonly,
		Handler: func(rctx *mcp.RequestContext, args map[string]interface{}) (interface{}, error) {
			droneID := stringArg(args, "drone_id")
			if droneID == "" {
				return nil, apperrors.New(apperrors.KindInvalidParams, "fleet-wide emergency stop requires a known drone id in this deployment")
			}
			results, err := runIntents(rctx, deps, []nlp.ParsedIntent{manualIntent(nlp.ActionEmergencyStop, droneID, nlp.Parameters{})}, router.FailurePolicyStopOnError)
			if err != nil {
				return nil, err
			}
			return payloads(results), nil
		},
	})
}

func droneIDSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"drone_id": map[string]interface{}{"type": "string"},
		},
		"required": []string{"drone_id"},
	}
}
