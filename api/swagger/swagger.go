package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Bootcamp Portal API",
        "description": "Learning portal backend: calendar invitations, documents, progress and technical tests",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, token refresh and password management"},
        {"name": "Users", "description": "Profiles and account administration"},
        {"name": "Calendar", "description": "Events, invitations and the response workflow"},
        {"name": "Documents", "description": "Learning documents and labs"},
        {"name": "Dashboard", "description": "Student progress overview"},
        {"name": "TechTests", "description": "Technical test taking"},
        {"name": "Reports", "description": "Asynchronous progress report exports"}
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
                    "200": {"description": "Ready"}
                }
            }
        },
        "/calendar/invitations": {
            "get": {
                "tags": ["Calendar"],
                "summary": "List invitation occurrences in a date range",
                "parameters": [
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendar/events/{id}/response": {
            "patch": {
                "tags": ["Calendar"],
                "summary": "Respond to an invitation",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/RespondRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Scope required or submission in flight"}
                }
            }
        }
    },
    "definitions": {
        "RespondRequest": {
            "type": "object",
            "required": ["responseStatus"],
            "properties": {
                "responseStatus": {"type": "string", "enum": ["accepted", "declined", "proposedNewTime"]},
                "responseOption": {"type": "string", "enum": ["thisEvent", "thisAndFollowing", "allEvents"]},
                "occurrenceStart": {"type": "string", "format": "date-time"},
                "proposedTime": {"$ref": "#/definitions/ProposedTime"}
            }
        },
        "ProposedTime": {
            "type": "object",
            "properties": {
                "start": {"type": "string", "format": "date-time"},
                "end": {"type": "string", "format": "date-time"},
                "reason": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"},
                "total_pages": {"type": "integer"}
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
