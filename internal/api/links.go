package api

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-wfs/internal/humastar"
)

// links maps operation paths to their RFC 8288 Link header values.
var links = map[string][]string{
	"/health": {
		`</api/v1/info>; rel="info"`,
		`</api/v1/datasets>; rel="datasets"`,
		`</api/v1/session>; rel="session"`,
		`</api/v1/snapshots>; rel="snapshots"`,
		`</openapi.json>; rel="service-desc"`,
	},
	"/api/v1/info": {
		`</health>; rel="health"`,
		`</api/v1/datasets>; rel="datasets"`,
	},
	"/api/v1/datasets": {
		`</api/v1/session>; rel="session"`,
		`</api/v1/history>; rel="history"`,
	},
	"/api/v1/datasets/{id}": {
		`</api/v1/datasets>; rel="collection"`,
	},
	"/api/v1/session": {
		`</api/v1/session/features>; rel="features"`,
		`</api/v1/session/transaction>; rel="transaction"`,
	},
	"/api/v1/session/features": {
		`</api/v1/session>; rel="up"`,
	},
	"/api/v1/session/features/{id}": {
		`</api/v1/session/features>; rel="collection"`,
	},
	"/api/v1/session/transaction": {
		`</api/v1/session/save>; rel="save"`,
	},
	"/api/v1/snapshots/{name}": {
		`</api/v1/snapshots>; rel="collection"`,
	},
}

// LinkTransformer returns a Huma Transformer that injects RFC 8288 Link headers.
func LinkTransformer() huma.Transformer {
	return humastar.LinkTransformer(links)
}
