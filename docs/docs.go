// Package docs registers the swagger spec for the task API.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["auth"],
                "summary": "Register a new user",
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Validation failed"},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Login with email and password",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["auth"],
                "summary": "Exchange a refresh token for a new access token",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Invalid or expired refresh token"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["auth"],
                "summary": "Revoke the current session",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/user/profile": {
            "get": {
                "tags": ["user"],
                "security": [{"BearerAuth": []}],
                "summary": "Get the authenticated user's profile",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            },
            "put": {
                "tags": ["user"],
                "security": [{"BearerAuth": []}],
                "summary": "Update the authenticated user's profile",
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "No fields to update"},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/tasks": {
            "post": {
                "tags": ["tasks"],
                "security": [{"BearerAuth": []}],
                "summary": "Create a task",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Validation failed"}}
            },
            "get": {
                "tags": ["tasks"],
                "security": [{"BearerAuth": []}],
                "summary": "List the authenticated user's tasks",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "priority", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sort", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/tasks/{id}": {
            "get": {
                "tags": ["tasks"],
                "security": [{"BearerAuth": []}],
                "summary": "Get a task by id",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Task not found"}}
            },
            "put": {
                "tags": ["tasks"],
                "security": [{"BearerAuth": []}],
                "summary": "Update a task",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "No fields to update"},
                    "404": {"description": "Task not found"}
                }
            },
            "delete": {
                "tags": ["tasks"],
                "security": [{"BearerAuth": []}],
                "summary": "Delete a task",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Task not found"}}
            }
        },
        "/health": {
            "get": {
                "tags": ["health"],
                "summary": "Liveness probe",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header",
            "description": "Type \"Bearer\" followed by a space and JWT token."
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api",
	Schemes:          []string{"http"},
	Title:            "Task Management API",
	Description:      "Task management API with JWT authentication and refresh-token rotation.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
