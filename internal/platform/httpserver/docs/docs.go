// Package docs holds the OpenAPI document served under /swagger/. It is kept
// by hand in step with the route table in server.go.
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
        "/agendas": {
            "post": {
                "summary": "Create agenda",
                "tags": [
                    "agendas"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CreateAgendaRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/AgendaResponse"
                        }
                    },
                    "400": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    }
                }
            },
            "get": {
                "summary": "List agendas",
                "tags": [
                    "agendas"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "status",
                        "in": "query",
                        "type": "string",
                        "description": "comma-separated statuses"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/AgendaListResponse"
                        }
                    },
                    "400": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    }
                }
            }
        },
        "/agendas/{agenda_id}": {
            "get": {
                "summary": "Get agenda",
                "tags": [
                    "agendas"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "agenda_id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/AgendaResponse"
                        }
                    },
                    "404": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    }
                }
            }
        },
        "/agendas/{agenda_id}/open": {
            "post": {
                "summary": "Open agenda",
                "tags": [
                    "agendas"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "agenda_id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/AgendaResponse"
                        }
                    },
                    "400": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    }
                }
            }
        },
        "/agendas/{agenda_id}/sessions": {
            "post": {
                "summary": "Start voting session",
                "tags": [
                    "sessions"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "agenda_id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/StartSessionRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/StartSessionResponse"
                        }
                    },
                    "400": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    }
                }
            }
        },
        "/agendas/{agenda_id}/session": {
            "get": {
                "summary": "Session status",
                "tags": [
                    "sessions"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "agenda_id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/SessionStatusResponse"
                        }
                    },
                    "404": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    }
                }
            }
        },
        "/agendas/{agenda_id}/votes": {
            "post": {
                "summary": "Cast vote",
                "tags": [
                    "votes"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "agenda_id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CastVoteRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/CastVoteResponse"
                        }
                    },
                    "400": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    }
                }
            },
            "get": {
                "summary": "List votes",
                "tags": [
                    "votes"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "agenda_id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/VoteListResponse"
                        }
                    },
                    "404": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    }
                }
            }
        },
        "/agendas/{agenda_id}/tally": {
            "post": {
                "summary": "Increment tally",
                "tags": [
                    "votes"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "agenda_id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "Idempotency-Key",
                        "in": "header",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/UpdateTallyRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/AgendaResponse"
                        }
                    },
                    "400": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    }
                }
            }
        },
        "/agendas/{agenda_id}/finalize": {
            "post": {
                "summary": "Finalize agenda",
                "tags": [
                    "agendas"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "agenda_id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/AgendaResponse"
                        }
                    },
                    "400": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    }
                }
            }
        },
        "/agendas/{agenda_id}/cancel": {
            "post": {
                "summary": "Cancel agenda",
                "tags": [
                    "agendas"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "agenda_id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/AgendaResponse"
                        }
                    },
                    "400": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    }
                }
            }
        },
        "/sessions/expired/process": {
            "post": {
                "summary": "Run one expiry sweep",
                "tags": [
                    "sessions"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/SweepResponse"
                        }
                    },
                    "500": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                }
            }
        },
        "CreateAgendaRequest": {
            "type": "object",
            "properties": {
                "title": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                }
            }
        },
        "StartSessionRequest": {
            "type": "object",
            "properties": {
                "duration_minutes": {
                    "type": "integer"
                }
            }
        },
        "CastVoteRequest": {
            "type": "object",
            "properties": {
                "vote_type": {
                    "type": "string",
                    "enum": [
                        "YES",
                        "NO"
                    ]
                }
            }
        },
        "UpdateTallyRequest": {
            "type": "object",
            "properties": {
                "vote_type": {
                    "type": "string",
                    "enum": [
                        "YES",
                        "NO"
                    ]
                }
            }
        },
        "AgendaResponse": {
            "type": "object",
            "properties": {
                "agenda_id": {
                    "type": "string"
                },
                "title": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "status": {
                    "type": "string",
                    "enum": [
                        "DRAFT",
                        "OPEN",
                        "IN_PROGRESS",
                        "FINISHED",
                        "CANCELLED"
                    ]
                },
                "result": {
                    "type": "string",
                    "enum": [
                        "UNVOTED",
                        "APPROVED",
                        "REJECTED",
                        "TIE"
                    ]
                },
                "total_votes": {
                    "type": "integer"
                },
                "yes_votes": {
                    "type": "integer"
                },
                "no_votes": {
                    "type": "integer"
                },
                "created_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "updated_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "finished_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "replayed": {
                    "type": "boolean"
                }
            }
        },
        "AgendaListResponse": {
            "type": "object",
            "properties": {
                "items": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/AgendaResponse"
                    }
                }
            }
        },
        "SessionResponse": {
            "type": "object",
            "properties": {
                "session_id": {
                    "type": "string"
                },
                "agenda_id": {
                    "type": "string"
                },
                "start_time": {
                    "type": "string",
                    "format": "date-time"
                },
                "end_time": {
                    "type": "string",
                    "format": "date-time"
                },
                "reconciled": {
                    "type": "boolean"
                },
                "closed_at": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "StartSessionResponse": {
            "type": "object",
            "properties": {
                "agenda": {
                    "$ref": "#/definitions/AgendaResponse"
                },
                "session": {
                    "$ref": "#/definitions/SessionResponse"
                },
                "replayed": {
                    "type": "boolean"
                }
            }
        },
        "SessionStatusResponse": {
            "type": "object",
            "properties": {
                "agenda_id": {
                    "type": "string"
                },
                "active": {
                    "type": "boolean"
                },
                "current": {
                    "$ref": "#/definitions/SessionResponse"
                },
                "remaining_seconds": {
                    "type": "integer"
                },
                "history": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/SessionResponse"
                    }
                }
            }
        },
        "VoteResponse": {
            "type": "object",
            "properties": {
                "vote_id": {
                    "type": "string"
                },
                "agenda_id": {
                    "type": "string"
                },
                "user_id": {
                    "type": "string"
                },
                "vote_type": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "CastVoteResponse": {
            "type": "object",
            "properties": {
                "vote": {
                    "$ref": "#/definitions/VoteResponse"
                },
                "agenda": {
                    "$ref": "#/definitions/AgendaResponse"
                },
                "replayed": {
                    "type": "boolean"
                }
            }
        },
        "VoteListResponse": {
            "type": "object",
            "properties": {
                "items": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/VoteResponse"
                    }
                }
            }
        },
        "SweepResponse": {
            "type": "object",
            "properties": {
                "scanned": {
                    "type": "integer"
                },
                "finalized": {
                    "type": "integer"
                },
                "skipped": {
                    "type": "integer"
                },
                "failed": {
                    "type": "integer"
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/v1",
	Schemes:          []string{},
	Title:            "Assembly agenda voting API",
	Description:      "Agenda lifecycle, timed voting sessions and one-vote-per-user ballots.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
