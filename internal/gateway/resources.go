package gateway

import (
	"github.com/skywire-labs/drone-nlp-gateway/internal/mcp"
	"github.com/skywire-labs/drone-nlp-gateway/internal/security"
)

// RegisterResources registers the fixed three-resource catalog (spec §4.4).
func RegisterResources(catalog *mcp.Catalog, deps Deps, threat *security.ThreatAnalyzer) {
	catalog.RegisterResource(mcp.ResourceDescriptor{
		URI: "drones://list", Description: "Last-known state of every drone this process has touched.",
		MimeType: "application/json", MinRole: security.RoleReadonly,
		Handler: func(rctx *mcp.RequestContext) (interface{}, error) {
			return deps.State.All(), nil
		},
	})

	catalog.RegisterResource(mcp.ResourceDescriptor{
		URI: "system://status", Description: "Active sessions, recent security events, and active alerts.",
		MimeType: "application/json", MinRole: security.RoleReadonly,
		Handler: func(rctx *mcp.RequestContext) (interface{}, error) {
			return deps.Monitor.Snapshot(deps.Sessions.Count()), nil
		},
	})

	catalog.RegisterResource(mcp.ResourceDescriptor{
		URI: "system://health", Description: "Threat summary from the periodic security evaluator.",
		MimeType: "application/json", MinRole: security.RoleReadonly,
		Handler: func(rctx *mcp.RequestContext) (interface{}, error) {
			return threat.Summary(), nil
		},
	})
}
