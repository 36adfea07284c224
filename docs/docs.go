// Package docs registers the OpenAPI description served under /swagger.
package docs

import "github.com/swaggo/swag/v2"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "schemes": {{ marshal .Schemes }},
    "consumes": ["application/json"],
    "produces": ["application/json"],
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Bearer token issued by the identity provider. Format: \"Bearer {token}\"",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/ledgers": {
            "post": {
                "operationId": "submitLedger",
                "summary": "Submit a daily ledger",
                "tags": ["ledgers"],
                "security": [{"BearerAuth": []}],
                "responses": {"default": {"description": "Envelope {success, data, error, meta}"}}
            },
            "get": {
                "operationId": "listLedgers",
                "summary": "List ledgers",
                "tags": ["ledgers"],
                "security": [{"BearerAuth": []}],
                "responses": {"default": {"description": "Envelope {success, data, error, meta}"}}
            }
        },
        "/ledgers/{id}": {
            "get": {
                "operationId": "getLedger",
                "summary": "Get a ledger",
                "tags": ["ledgers"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"default": {"description": "Envelope {success, data, error, meta}"}}
            }
        },
        "/ledgers/{id}/review": {
            "post": {
                "operationId": "reviewLedger",
                "summary": "Review a pending ledger",
                "tags": ["ledgers"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"default": {"description": "Envelope {success, data, error, meta}"}}
            }
        },
        "/ledgers/{id}/close": {
            "post": {
                "operationId": "closeLedger",
                "summary": "Close an approved ledger",
                "tags": ["ledgers"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"default": {"description": "Envelope {success, data, error, meta}"}}
            }
        },
        "/ledgers/{id}/reconcile": {
            "post": {
                "operationId": "reconcileLedger",
                "summary": "Reconcile a closed ledger",
                "tags": ["ledgers"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"default": {"description": "Envelope {success, data, error, meta}"}}
            }
        },
        "/ledgers/{id}/dispatch": {
            "post": {
                "operationId": "dispatchLedgerCash",
                "summary": "Mark the cash of a reconciled ledger as sent",
                "tags": ["ledgers"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"default": {"description": "Envelope {success, data, error, meta}"}}
            }
        },
        "/ledgers/{id}/entries": {
            "get": {
                "operationId": "listLedgerEntries",
                "summary": "List the revenue entries of a ledger",
                "tags": ["entries"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"default": {"description": "Envelope {success, data, error, meta}"}}
            },
            "post": {
                "operationId": "createLedgerEntry",
                "summary": "Record a revenue entry",
                "tags": ["entries"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"default": {"description": "Envelope {success, data, error, meta}"}}
            }
        },
        "/ledgers/{id}/overlaps": {
            "get": {
                "operationId": "findEntryOverlaps",
                "summary": "Find entries overlapping a time range",
                "tags": ["entries"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"default": {"description": "Envelope {success, data, error, meta}"}}
            }
        },
        "/entries/{id}": {
            "get": {
                "operationId": "getEntry",
                "summary": "Get a revenue entry",
                "tags": ["entries"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"default": {"description": "Envelope {success, data, error, meta}"}}
            },
            "put": {
                "operationId": "updateEntry",
                "summary": "Replace a revenue entry",
                "tags": ["entries"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"default": {"description": "Envelope {success, data, error, meta}"}}
            },
            "delete": {
                "operationId": "deleteEntry",
                "summary": "Deactivate a revenue entry",
                "tags": ["entries"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"default": {"description": "Envelope {success, data, error, meta}"}}
            }
        },
        "/entries/{id}/adjustments": {
            "post": {
                "operationId": "requestAdjustment",
                "summary": "Request an entry adjustment",
                "tags": ["adjustments"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"default": {"description": "Envelope {success, data, error, meta}"}}
            },
            "get": {
                "operationId": "listEntryAdjustments",
                "summary": "List the adjustment history of an entry",
                "tags": ["adjustments"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"default": {"description": "Envelope {success, data, error, meta}"}}
            }
        },
        "/adjustments": {
            "get": {
                "operationId": "listAdjustments",
                "summary": "List adjustment requests by status",
                "tags": ["adjustments"],
                "security": [{"BearerAuth": []}],
                "responses": {"default": {"description": "Envelope {success, data, error, meta}"}}
            }
        },
        "/adjustments/{id}": {
            "get": {
                "operationId": "getAdjustment",
                "summary": "Get an adjustment request",
                "tags": ["adjustments"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"default": {"description": "Envelope {success, data, error, meta}"}}
            }
        },
        "/adjustments/{id}/decision": {
            "post": {
                "operationId": "decideAdjustment",
                "summary": "Approve or reject an adjustment request",
                "tags": ["adjustments"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"default": {"description": "Envelope {success, data, error, meta}"}}
            }
        },
        "/adjustments/{id}/withdraw": {
            "post": {
                "operationId": "withdrawAdjustment",
                "summary": "Withdraw a pending adjustment request",
                "tags": ["adjustments"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"default": {"description": "Envelope {success, data, error, meta}"}}
            }
        },
        "/admin/ledgers": {
            "get": {
                "operationId": "adminListLedgers",
                "summary": "List ledgers across all tenants",
                "tags": ["admin"],
                "security": [{"BearerAuth": []}],
                "responses": {"default": {"description": "Envelope {success, data, error, meta}"}}
            }
        },
        "/admin/unit-assignments": {
            "get": {
                "operationId": "adminListUnitAssignments",
                "summary": "List the units assigned to a user",
                "tags": ["admin"],
                "security": [{"BearerAuth": []}],
                "responses": {"default": {"description": "Envelope {success, data, error, meta}"}}
            },
            "post": {
                "operationId": "adminAssignUnit",
                "summary": "Grant a user access to a unit",
                "tags": ["admin"],
                "security": [{"BearerAuth": []}],
                "responses": {"default": {"description": "Envelope {success, data, error, meta}"}}
            },
            "delete": {
                "operationId": "adminRevokeUnit",
                "summary": "Revoke a user's access to a unit",
                "tags": ["admin"],
                "security": [{"BearerAuth": []}],
                "responses": {"default": {"description": "Envelope {success, data, error, meta}"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Cash Ledger API",
	Description:      "Daily ledger reconciliation and adjustment governance",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
