package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Results API",
        "description": "Per-subject result recording, class compilation and complaint resolution.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [
        {"BearerAuth": []}
    ],
    "tags": [
        {"name": "Results", "description": "Result submission and class views"},
        {"name": "Complaints", "description": "Student complaints against results"}
    ],
    "paths": {
        "/results/actions": {
            "post": {
                "tags": ["Results"],
                "summary": "Submit a result action",
                "description": "Dispatches on the action field. Batch scores are keyed first_ca[studentId][subjectId]; multi-subject scores first_ca[subjectId] with optional attempted[subjectId].",
                "consumes": ["application/x-www-form-urlencoded", "multipart/form-data"],
                "parameters": [
                    {"name": "action", "in": "formData", "required": true, "type": "string",
                     "enum": ["save_batch_results", "save_single_result", "save_multiple_subjects", "delete_result", "delete_student_results", "resolve_complaint"]},
                    {"name": "class_id", "in": "formData", "type": "string"},
                    {"name": "student_id", "in": "formData", "type": "string"},
                    {"name": "student_ids[]", "in": "formData", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"},
                    {"name": "subject_id", "in": "formData", "type": "string"},
                    {"name": "result_id", "in": "formData", "type": "string"},
                    {"name": "complaint_id", "in": "formData", "type": "string"},
                    {"name": "response", "in": "formData", "type": "string"},
                    {"name": "term", "in": "formData", "type": "string"},
                    {"name": "academic_session", "in": "formData", "type": "string"},
                    {"name": "first_ca", "in": "formData", "type": "string"},
                    {"name": "second_ca", "in": "formData", "type": "string"},
                    {"name": "exam", "in": "formData", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Outside the caller's scope", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/results": {
            "get": {
                "tags": ["Results"],
                "summary": "List class results for a term",
                "parameters": [
                    {"name": "classId", "in": "query", "required": true, "type": "string"},
                    {"name": "term", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/results/compiled": {
            "get": {
                "tags": ["Results"],
                "summary": "Compiled and pending students of a class",
                "parameters": [
                    {"name": "classId", "in": "query", "required": true, "type": "string"},
                    {"name": "term", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/complaints": {
            "get": {
                "tags": ["Complaints"],
                "summary": "List complaints raised against a class's results",
                "parameters": [
                    {"name": "classId", "in": "query", "required": true, "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["open", "resolved"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/complaints/{id}/resolve": {
            "post": {
                "tags": ["Complaints"],
                "summary": "Resolve a complaint with a teacher response",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResolveComplaintPayload"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already resolved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ResolveComplaintPayload": {
            "type": "object",
            "required": ["response"],
            "properties": {
                "response": {"type": "string"}
            }
        },
        "SubmissionResult": {
            "type": "object",
            "properties": {
                "action": {"type": "string"},
                "message": {"type": "string"},
                "created": {"type": "integer"},
                "updated": {"type": "integer"},
                "skipped": {"type": "integer"},
                "deleted": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "array", "items": {"type": "string"}}
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
