package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "IMS Core API",
        "description": "Attendance marking and analytics aggregation core",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Attendance", "description": "Attendance marking and barcode check-in"},
        {"name": "Reports", "description": "Financial, attendance and academic rollups"}
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
        "/attendance/mark": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Mark attendance for one or many students",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MarkRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/scan": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Check a student in by barcode or student code",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScanRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/{id}": {
            "delete": {
                "tags": ["Attendance"],
                "summary": "Delete an attendance record",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/reports/financial": {
            "get": {
                "tags": ["Reports"],
                "summary": "Financial report",
                "parameters": [
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/attendance": {
            "get": {
                "tags": ["Reports"],
                "summary": "Attendance report",
                "parameters": [
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/academic": {
            "get": {
                "tags": ["Reports"],
                "summary": "Academic report",
                "parameters": [
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "MarkItem": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "status": {"type": "string", "enum": ["present", "absent", "late", "excused"]},
                "notes": {"type": "string"}
            },
            "required": ["student_id", "status"]
        },
        "MarkRequest": {
            "type": "object",
            "properties": {
                "class_id": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "actor_id": {"type": "string"},
                "items": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/MarkItem"}
                }
            },
            "required": ["class_id", "date", "actor_id", "items"]
        },
        "ScanRequest": {
            "type": "object",
            "properties": {
                "class_id": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "token": {"type": "string"},
                "actor_id": {"type": "string"}
            },
            "required": ["class_id", "date", "token", "actor_id"]
        },
        "ScanResult": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["success", "not_found", "not_enrolled", "write_failed"]},
                "message": {"type": "string"},
                "student_name": {"type": "string"}
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
