// Package docs holds the OpenAPI description served under /swagger.
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
        "/offers": {
            "get": {
                "produces": ["application/json"],
                "tags": ["sync"],
                "summary": "Published offers of today and tomorrow",
                "parameters": [
                    {"type": "string", "description": "Restrict to one day (YYYY-MM-DD)", "name": "date", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["offers"],
                "summary": "Add an offer",
                "parameters": [
                    {"description": "Offer", "name": "offer", "in": "body", "required": true, "schema": {"$ref": "#/definitions/offerRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/idResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        },
        "/offers/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["offers"],
                "summary": "Get an offer",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "tags": ["offers"],
                "summary": "Replace the editable fields of an offer",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "offer", "in": "body", "required": true, "schema": {"$ref": "#/definitions/offerRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            },
            "delete": {
                "tags": ["offers"],
                "summary": "Delete an offer and its image",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        },
        "/offers/{id}/visibility": {
            "post": {
                "consumes": ["application/json"],
                "tags": ["offers"],
                "summary": "Flip the visibility of an offer",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/visibilityRequest"}}
                ],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/offers/{id}/image": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["offers"],
                "summary": "Upload an image for an offer",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "file", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/urlResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        },
        "/sync/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["sync"],
                "summary": "Sync controller status",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/ping": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ops"],
                "summary": "Check that the offer store answers",
                "responses": {"200": {"description": "OK"}, "500": {"description": "Internal Server Error"}}
            }
        },
        "/keep-alive": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ops"],
                "summary": "Touch the offer store so hosted databases stay awake",
                "responses": {"200": {"description": "OK"}, "500": {"description": "Internal Server Error"}}
            }
        }
    },
    "definitions": {
        "errorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "idResponse": {
            "type": "object",
            "properties": {"id": {"type": "string"}}
        },
        "urlResponse": {
            "type": "object",
            "properties": {"url": {"type": "string"}}
        },
        "visibilityRequest": {
            "type": "object",
            "required": ["current"],
            "properties": {"current": {"type": "boolean"}}
        },
        "offerRequest": {
            "type": "object",
            "properties": {
                "date": {"type": "string", "example": "2024-06-01"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "time": {"type": "string", "example": "14:30"},
                "location": {"type": "string"},
                "supervisor": {"type": "string"},
                "image_url": {"type": "string"},
                "visible": {"type": "boolean"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Ferienplan Sync API",
	Description:      "Holiday programme offers with live updates.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
