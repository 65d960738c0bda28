package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Secure Print API",
        "description": "Watermarked document printing with session tracking and capture deterrence",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Authentication and token lifecycle"},
        {"name": "Print", "description": "Document descriptors and print event logging"},
        {"name": "Sessions", "description": "Print session lifecycle and deterrence signals"},
        {"name": "Admin", "description": "Audit trail and system metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Degraded"}
                }
            }
        },
        "/metrics": {
            "get": {
                "summary": "Prometheus metrics",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/v1/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with email and password",
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Token pair issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate the refresh token",
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshTokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "New token pair", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid refresh token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Revoke the refresh token",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "Logged out"}
                }
            }
        },
        "/api/v1/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current user identity",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "User info", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/print/{fileId}": {
            "get": {
                "tags": ["Print"],
                "summary": "Fetch the document descriptor for printing",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "fileId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Descriptor"},
                    "404": {"description": "File not found"}
                }
            }
        },
        "/api/v1/print/log/{fileId}": {
            "post": {
                "tags": ["Print"],
                "summary": "Record a completed print",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "fileId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Logged"},
                    "500": {"description": "Log write failed"}
                }
            }
        },
        "/api/v1/print/sessions/{fileId}": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Start a print session",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "fileId", "in": "path", "type": "string", "required": true},
                    {"name": "body", "in": "body", "schema": {"$ref": "#/definitions/StartSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Session opened", "schema": {"$ref": "#/definitions/SessionSnapshot"}},
                    "412": {"description": "No print device detected"},
                    "502": {"description": "Descriptor fetch failed"}
                }
            }
        },
        "/api/v1/print/sessions/current": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Active session snapshot",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Snapshot", "schema": {"$ref": "#/definitions/SessionSnapshot"}},
                    "404": {"description": "No active session"}
                }
            },
            "delete": {
                "tags": ["Sessions"],
                "summary": "Cancel the active session",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Cancelled", "schema": {"$ref": "#/definitions/SessionSnapshot"}},
                    "404": {"description": "No active session"}
                }
            }
        },
        "/api/v1/print/sessions/current/events": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Deliver a message envelope from the rendering context",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "202": {"description": "Accepted"},
                    "400": {"description": "Malformed or unknown envelope"}
                }
            }
        },
        "/api/v1/print/sessions/current/signals": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Report a deterrence signal",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SignalRequest"}}
                ],
                "responses": {
                    "200": {"description": "Processed; blocked flag set for key chords"},
                    "400": {"description": "Unknown signal kind"}
                }
            }
        },
        "/api/v1/print/sessions/current/document": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Download the rendered output of a completed session",
                "security": [{"BearerAuth": []}],
                "produces": ["application/pdf"],
                "responses": {
                    "200": {"description": "PDF document"},
                    "404": {"description": "No rendered output"}
                }
            }
        },
        "/api/v1/admin/print-logs": {
            "get": {
                "tags": ["Admin"],
                "summary": "Paginated print audit trail",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Logs with pagination"},
                    "403": {"description": "Admin role required"}
                }
            }
        },
        "/api/v1/admin/print-logs/file/{fileId}": {
            "get": {
                "tags": ["Admin"],
                "summary": "Print audit trail for one file",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "fileId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Logs"},
                    "403": {"description": "Admin role required"}
                }
            }
        },
        "/api/v1/admin/files": {
            "get": {
                "tags": ["Admin"],
                "summary": "List stored files",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "search", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Files", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/admin/metrics": {
            "get": {
                "tags": ["Admin"],
                "summary": "Aggregated runtime metrics",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Metrics snapshot", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "RefreshTokenRequest": {
            "type": "object",
            "required": ["refresh_token"],
            "properties": {
                "refresh_token": {"type": "string"}
            }
        },
        "StartSessionRequest": {
            "type": "object",
            "properties": {
                "watermark_text": {"type": "string"}
            }
        },
        "SignalRequest": {
            "type": "object",
            "required": ["kind"],
            "properties": {
                "kind": {"type": "string", "enum": ["visibility-change", "window-blur", "key-combo"]},
                "key": {
                    "type": "object",
                    "properties": {
                        "key": {"type": "string"},
                        "ctrl": {"type": "boolean"},
                        "shift": {"type": "boolean"},
                        "alt": {"type": "boolean"},
                        "meta": {"type": "boolean"}
                    }
                }
            }
        },
        "SessionSnapshot": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "file_id": {"type": "string"},
                "user_id": {"type": "string"},
                "state": {"type": "string"},
                "error_code": {"type": "string"},
                "started_at": {"type": "string", "format": "date-time"},
                "finished_at": {"type": "string", "format": "date-time"},
                "events": {"type": "array", "items": {"type": "object"}}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
