// Package docs holds the generated OpenAPI document served at /swagger/.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/audit": {
            "get": {
                "produces": ["application/json"],
                "tags": ["audit"],
                "summary": "Query audit entries, newest first",
                "parameters": [
                    {"type": "string", "name": "actorId", "in": "query"},
                    {"type": "string", "name": "targetId", "in": "query"},
                    {"type": "string", "name": "action", "in": "query"},
                    {"type": "string", "name": "correlationId", "in": "query"},
                    {"type": "string", "name": "startDate", "in": "query"},
                    {"type": "string", "name": "endDate", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"},
                    {"type": "integer", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["audit"],
                "summary": "Append an audit entry",
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/cases": {
            "get": {
                "produces": ["application/json"],
                "tags": ["verification"],
                "summary": "List verification cases",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Unauthorized"}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["verification"],
                "summary": "Open a death verification case",
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"},
                    "409": {"description": "Conflict"}
                }
            }
        },
        "/cases/{case_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["verification"],
                "summary": "Fetch one verification case",
                "parameters": [
                    {"type": "string", "name": "case_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Unauthorized"},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/cases/{case_id}/status": {
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["verification"],
                "summary": "Decide a verification case",
                "parameters": [
                    {"type": "string", "name": "case_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"},
                    "404": {"description": "Not Found"},
                    "409": {"description": "Conflict"}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["platform"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Heirloom Backend API",
	Description:      "Audit ledger and death verification services behind the internal trust gate.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
