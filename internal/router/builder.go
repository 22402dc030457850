package router

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/skywire-labs/drone-nlp-gateway/internal/apperrors"
	"github.com/skywire-labs/drone-nlp-gateway/internal/nlp"
)

// Precondition bounds for numeric command parameters (spec §4.3). These
// mirror the NLP extractor's clamp range, but here they reject rather than
// clamp: a value reaching the router has already bypassed NLP's clamping
// (e.g. a direct tools/call with distance_cm/angle_deg/altitude_cm), so the
// router is the one place every dispatch path — NLP or direct — passes
// through before a backend call is made.
const (
	minDistanceCm = 20
	maxDistanceCm = 500
	minAngleDeg   = 1
	maxAngleDeg   = 360
	minAltitudeCm = 20
	maxAltitudeCm = 300
)

// mapping describes how one nlp.Action becomes a backend call, and what
// drone state it requires before it may be dispatched.
type mapping struct {
	method            string
	path              string
	idempotent        bool
	requireConnected  bool
	requireNotFlying  bool
	requireFlying     bool
	buildArgs         func(p nlp.Parameters) map[string]interface{}
}

var actionMappings = map[nlp.Action]mapping{
	nlp.ActionConnect: {
		method: "POST", path: "/drones/%s/connect", idempotent: true,
	},
	nlp.ActionDisconnect: {
		method: "POST", path: "/drones/%s/disconnect", idempotent: true, requireConnected: true,
	},
	nlp.ActionTakeoff: {
		method: "POST", path: "/drones/%s/takeoff", idempotent: false,
		requireConnected: true, requireNotFlying: true,
	},
	nlp.ActionLand: {
		method: "POST", path: "/drones/%s/land", idempotent: false, requireFlying: true,
	},
	nlp.ActionMove: {
		method: "POST", path: "/drones/%s/move", idempotent: false, requireFlying: true,
		buildArgs: func(p nlp.Parameters) map[string]interface{} {
			args := map[string]interface{}{"direction": p.Direction}
			if p.DistanceCm != nil {
				args["distance_cm"] = *p.DistanceCm
			}
			return args
		},
	},
	nlp.ActionRotate: {
		method: "POST", path: "/drones/%s/rotate", idempotent: false, requireFlying: true,
		buildArgs: func(p nlp.Parameters) map[string]interface{} {
			args := map[string]interface{}{"rotation_direction": p.RotationDirection}
			if p.AngleDeg != nil {
				args["angle_deg"] = *p.AngleDeg
			}
			return args
		},
	},
	nlp.ActionAltitudeSet: {
		method: "POST", path: "/drones/%s/altitude", idempotent: false, requireFlying: true,
		buildArgs: func(p nlp.Parameters) map[string]interface{} {
			args := map[string]interface{}{}
			if p.AltitudeCm != nil {
				args["altitude_cm"] = *p.AltitudeCm
			}
			return args
		},
	},
	nlp.ActionPhoto: {
		method: "POST", path: "/drones/%s/photo", idempotent: true, requireFlying: true,
	},
	nlp.ActionVideoStart: {
		method: "POST", path: "/drones/%s/video/start", idempotent: true, requireFlying: true,
	},
	nlp.ActionVideoStop: {
		method: "POST", path: "/drones/%s/video/stop", idempotent: true, requireFlying: true,
	},
	nlp.ActionStatusQuery: {
		method: "GET", path: "/drones/%s/status", idempotent: true,
	},
	nlp.ActionEmergencyStop: {
		method: "POST", path: "/drones/%s/emergency_stop", idempotent: false,
	},
}

// Build turns a sequence of parsed intents into a validated BatchPlan.
// Preconditions are checked against the store's last-known snapshot,
// updated as-if-executed across the batch so later commands in the same
// batch see the effect of earlier ones (e.g. move after takeoff).
func Build(intents []nlp.ParsedIntent, store *StateStore, policy FailurePolicy) (*BatchPlan, error) {
	if policy == "" {
		policy = FailurePolicyStopOnError
	}

	plan := &BatchPlan{Policy: policy}
	// projected tracks the batch's working view of drone state so
	// preconditions for command N see the effect of commands < N.
	projected := map[string]DroneState{}
	lastConnect := map[string]string{}
	lastTakeoff := map[string]string{}

	for _, intent := range intents {
		droneID := intent.Parameters.TargetDroneID
		if droneID == "" && intent.Action != nlp.ActionEmergencyStop {
			return nil, apperrors.New(apperrors.KindInvalidParams, "no drone id available for command")
		}

		m, ok := actionMappings[intent.Action]
		if !ok {
			// Actions with no backend mapping (help, unknown) produce no
			// command.
			continue
		}

		state, seen := projected[droneID]
		if !seen {
			state = store.Snapshot(droneID)
		}

		if m.requireConnected && !state.Connected {
			return nil, apperrors.New(apperrors.KindPreconditionFailed, fmt.Sprintf("drone %s is not connected", droneID))
		}
		if m.requireNotFlying && state.Flying {
			return nil, apperrors.New(apperrors.KindPreconditionFailed, fmt.Sprintf("drone %s is already flying", droneID))
		}
		if m.requireFlying && !state.Flying {
			return nil, apperrors.New(apperrors.KindPreconditionFailed, fmt.Sprintf("drone %s is not flying", droneID))
		}
		if intent.Action == nlp.ActionAltitudeSet && intent.Parameters.AltitudeCm == nil {
			return nil, apperrors.New(apperrors.KindInvalidParams, "altitude_set requires a target altitude")
		}

		switch intent.Action {
		case nlp.ActionMove:
			if v := intent.Parameters.DistanceCm; v != nil && (*v < minDistanceCm || *v > maxDistanceCm) {
				return nil, apperrors.New(apperrors.KindPreconditionFailed,
					fmt.Sprintf("distance_cm %d out of range [%d,%d]", *v, minDistanceCm, maxDistanceCm))
			}
		case nlp.ActionRotate:
			if v := intent.Parameters.AngleDeg; v != nil && (*v < minAngleDeg || *v > maxAngleDeg) {
				return nil, apperrors.New(apperrors.KindPreconditionFailed,
					fmt.Sprintf("angle_deg %d out of range [%d,%d]", *v, minAngleDeg, maxAngleDeg))
			}
		case nlp.ActionAltitudeSet:
			if v := intent.Parameters.AltitudeCm; v != nil && (*v < minAltitudeCm || *v > maxAltitudeCm) {
				return nil, apperrors.New(apperrors.KindPreconditionFailed,
					fmt.Sprintf("altitude_cm %d out of range [%d,%d]", *v, minAltitudeCm, maxAltitudeCm))
			}
		}

		cmd := Command{
			ID:         uuid.NewString(),
			DroneID:    droneID,
			Action:     string(intent.Action),
			Method:     m.method,
			Path:       fmt.Sprintf(m.path, droneID),
			Idempotent: m.idempotent,
		}
		if m.buildArgs != nil {
			cmd.Args = m.buildArgs(intent.Parameters)
		}

		// Dependency-edge inference: explicit clause order already serial
		// (appended below), but movement/photo/rotate/land/disconnect
		// explicitly depend on the most recent connect/takeoff for the
		// same drone so the executor can still schedule across drones
		// concurrently while respecting per-drone ordering.
		switch intent.Action {
		case nlp.ActionTakeoff, nlp.ActionDisconnect:
			if id, ok := lastConnect[droneID]; ok {
				cmd.DependsOn = append(cmd.DependsOn, id)
			}
		case nlp.ActionMove, nlp.ActionRotate, nlp.ActionPhoto, nlp.ActionLand,
			nlp.ActionAltitudeSet, nlp.ActionVideoStart, nlp.ActionVideoStop:
			if id, ok := lastTakeoff[droneID]; ok {
				cmd.DependsOn = append(cmd.DependsOn, id)
			}
		}

		switch intent.Action {
		case nlp.ActionConnect:
			lastConnect[droneID] = cmd.ID
			state.Connected = true
		case nlp.ActionDisconnect:
			state.Connected = false
			state.Flying = false
		case nlp.ActionTakeoff:
			lastTakeoff[droneID] = cmd.ID
			state.Flying = true
		case nlp.ActionLand:
			state.Flying = false
		case nlp.ActionAltitudeSet:
			if intent.Parameters.AltitudeCm != nil {
				state.AltitudeCm = *intent.Parameters.AltitudeCm
			}
		}
		projected[droneID] = state

		plan.Commands = append(plan.Commands, cmd)
	}

	return plan, nil
}
