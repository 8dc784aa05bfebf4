// Package reqtoken holds the OpenAPI description of the request token
// service, served under /swagger/.
package reqtoken

import "github.com/swaggo/swag"

const docTemplate = `{
	"schemes": {{ marshal .Schemes }},
	"swagger": "2.0",
	"info": {
		"description": "{{escape .Description}}",
		"title": "{{.Title}}",
		"contact": {
			"name": "AussieBroadWAN Team",
			"url": "https://github.com/aussiebroadwan/reqtoken"
		},
		"license": {
			"name": "MIT",
			"url": "https://opensource.org/licenses/MIT"
		},
		"version": "{{.Version}}"
	},
	"host": "{{.Host}}",
	"basePath": "{{.BasePath}}",
	"paths": {
		"/livez": {
			"get": {
				"description": "Liveness probe endpoint returning basic service health status, uptime, and version information",
				"produces": [
					"application/json"
				],
				"tags": [
					"Health"
				],
				"summary": "Health Check Endpoint",
				"responses": {
					"200": {
						"description": "status, uptime, version",
						"schema": {
							"$ref": "#/definitions/reqtokensdk.HealthResponse"
						}
					}
				}
			}
		},
		"/readyz": {
			"get": {
				"description": "Readiness probe endpoint returning service health status and checks for critical dependencies",
				"produces": [
					"application/json"
				],
				"tags": [
					"Health"
				],
				"summary": "Readiness Check Endpoint",
				"responses": {
					"200": {
						"description": "status, uptime, version, checks",
						"schema": {
							"$ref": "#/definitions/reqtokensdk.HealthResponse"
						}
					},
					"503": {
						"description": "service not ready",
						"schema": {
							"$ref": "#/definitions/reqtokensdk.HealthResponse"
						}
					}
				}
			}
		},
		"/v1/tokens": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"description": "Creates a request token for a scope and returns it signed. If url is given, the token is added to it as a query argument.",
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"Tokens"
				],
				"summary": "Issue Request Token",
				"parameters": [
					{
						"type": "string",
						"description": "Bearer admin token",
						"name": "Authorization",
						"in": "header",
						"required": true
					},
					{
						"description": "Token definition",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/reqtokensdk.CreateTokenRequest"
						}
					}
				],
				"responses": {
					"201": {
						"description": "id, token, claims, url",
						"schema": {
							"$ref": "#/definitions/reqtokensdk.CreateTokenResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/reqtokensdk.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/reqtokensdk.ErrorResponse"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/reqtokensdk.ErrorResponse"
						}
					}
				}
			}
		},
		"/v1/tokens/{id}": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"description": "Returns the stored state of a token, including its usage counters.",
				"produces": [
					"application/json"
				],
				"tags": [
					"Tokens"
				],
				"summary": "Get Request Token",
				"parameters": [
					{
						"type": "string",
						"description": "Bearer admin token",
						"name": "Authorization",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "Token ID (ULID)",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "Token state",
						"schema": {
							"$ref": "#/definitions/reqtokensdk.TokenState"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/reqtokensdk.ErrorResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/reqtokensdk.ErrorResponse"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/reqtokensdk.ErrorResponse"
						}
					}
				}
			}
		},
		"/v1/tokens/{id}/expire": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"description": "Ends the validity of a token immediately. Its usage history is kept.",
				"produces": [
					"application/json"
				],
				"tags": [
					"Tokens"
				],
				"summary": "Expire Request Token",
				"parameters": [
					{
						"type": "string",
						"description": "Bearer admin token",
						"name": "Authorization",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "Token ID (ULID)",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "Token state",
						"schema": {
							"$ref": "#/definitions/reqtokensdk.TokenState"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/reqtokensdk.ErrorResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/reqtokensdk.ErrorResponse"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/reqtokensdk.ErrorResponse"
						}
					}
				}
			}
		},
		"/v1/tokens/{id}/logs": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"description": "Returns every recorded attempt to use a token, oldest first, with error classifications for failed attempts.",
				"produces": [
					"application/json"
				],
				"tags": [
					"Tokens"
				],
				"summary": "List Token Usage",
				"parameters": [
					{
						"type": "string",
						"description": "Bearer admin token",
						"name": "Authorization",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "Token ID (ULID)",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "Usage logs",
						"schema": {
							"$ref": "#/definitions/reqtokensdk.ListUsageLogsResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/reqtokensdk.ErrorResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/reqtokensdk.ErrorResponse"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/reqtokensdk.ErrorResponse"
						}
					}
				}
			}
		},
		"/v1/whoami": {
			"get": {
				"description": "Returns the effective caller identity. A token issued for scope \"whoami\" is optional; REQUEST and SESSION mode tokens log their user in.",
				"produces": [
					"application/json"
				],
				"tags": [
					"Demo"
				],
				"summary": "Who Am I",
				"parameters": [
					{
						"type": "string",
						"description": "Request token",
						"name": "rt",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "Effective identity and token data",
						"schema": {
							"$ref": "#/definitions/reqtokensdk.WhoAmIResponse"
						}
					},
					"403": {
						"description": "Invalid URL token",
						"schema": {
							"type": "string"
						}
					}
				}
			}
		},
		"/v1/consume": {
			"get": {
				"description": "Requires a valid token issued for scope \"consume\" and returns its data. Each successful call counts as one use.",
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"Demo"
				],
				"summary": "Consume Token",
				"parameters": [
					{
						"type": "string",
						"description": "Request token",
						"name": "rt",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "Token data",
						"schema": {
							"$ref": "#/definitions/reqtokensdk.ConsumeResponse"
						}
					},
					"403": {
						"description": "Invalid URL token",
						"schema": {
							"type": "string"
						}
					}
				}
			},
			"post": {
				"description": "Requires a valid token issued for scope \"consume\" and returns its data. Each successful call counts as one use.",
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"Demo"
				],
				"summary": "Consume Token",
				"parameters": [
					{
						"type": "string",
						"description": "Request token",
						"name": "rt",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "Token data",
						"schema": {
							"$ref": "#/definitions/reqtokensdk.ConsumeResponse"
						}
					},
					"403": {
						"description": "Invalid URL token",
						"schema": {
							"type": "string"
						}
					}
				}
			}
		}
	},
	"definitions": {
		"reqtokensdk.ErrorResponse": {
			"type": "object",
			"properties": {
				"error": {
					"type": "string"
				},
				"error_description": {
					"type": "string"
				}
			}
		},
		"reqtokensdk.CreateTokenRequest": {
			"type": "object",
			"properties": {
				"scope": {
					"type": "string"
				},
				"user_id": {
					"type": "string"
				},
				"login_mode": {
					"type": "string"
				},
				"not_before": {
					"type": "string"
				},
				"expires_at": {
					"type": "string"
				},
				"max_uses": {
					"type": "integer"
				},
				"data": {
					"type": "object"
				},
				"stash": {
					"type": "boolean"
				},
				"url": {
					"type": "string"
				}
			}
		},
		"reqtokensdk.CreateTokenResponse": {
			"type": "object",
			"properties": {
				"id": {
					"type": "string"
				},
				"token": {
					"type": "string"
				},
				"claims": {
					"type": "object"
				},
				"url": {
					"type": "string"
				}
			}
		},
		"reqtokensdk.TokenState": {
			"type": "object",
			"properties": {
				"id": {
					"type": "string"
				},
				"scope": {
					"type": "string"
				},
				"user_id": {
					"type": "string"
				},
				"login_mode": {
					"type": "string"
				},
				"not_before": {
					"type": "string"
				},
				"expires_at": {
					"type": "string"
				},
				"issued_at": {
					"type": "string"
				},
				"max_uses": {
					"type": "integer"
				},
				"used_to_date": {
					"type": "integer"
				},
				"successful_uses": {
					"type": "integer"
				},
				"remaining_uses": {
					"type": "integer"
				},
				"data": {
					"type": "object"
				},
				"stash": {
					"type": "boolean"
				},
				"currently_active": {
					"type": "boolean"
				}
			}
		},
		"reqtokensdk.UsageLogError": {
			"type": "object",
			"properties": {
				"classification": {
					"type": "string"
				},
				"message": {
					"type": "string"
				}
			}
		},
		"reqtokensdk.UsageLogEntry": {
			"type": "object",
			"properties": {
				"id": {
					"type": "string"
				},
				"user_id": {
					"type": "string"
				},
				"client_ip": {
					"type": "string"
				},
				"user_agent": {
					"type": "string"
				},
				"status_code": {
					"type": "integer"
				},
				"timestamp": {
					"type": "string"
				},
				"error": {
					"$ref": "#/definitions/reqtokensdk.UsageLogError"
				}
			}
		},
		"reqtokensdk.ListUsageLogsResponse": {
			"type": "object",
			"properties": {
				"logs": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/reqtokensdk.UsageLogEntry"
					}
				}
			}
		},
		"reqtokensdk.WhoAmIResponse": {
			"type": "object",
			"properties": {
				"user_id": {
					"type": "string"
				},
				"token_id": {
					"type": "string"
				},
				"token_error": {
					"type": "string"
				},
				"data": {
					"type": "object"
				}
			}
		},
		"reqtokensdk.ConsumeResponse": {
			"type": "object",
			"properties": {
				"token_id": {
					"type": "string"
				},
				"user_id": {
					"type": "string"
				},
				"remaining_uses": {
					"type": "integer"
				},
				"data": {
					"type": "object"
				}
			}
		},
		"reqtokensdk.HealthChecks": {
			"type": "object",
			"properties": {
				"database": {
					"type": "string"
				},
				"signer": {
					"type": "string"
				}
			}
		},
		"reqtokensdk.HealthResponse": {
			"type": "object",
			"properties": {
				"status": {
					"type": "string"
				},
				"uptime": {
					"type": "string"
				},
				"version": {
					"type": "string"
				},
				"checks": {
					"$ref": "#/definitions/reqtokensdk.HealthChecks"
				}
			}
		}
	},
	"securityDefinitions": {
		"BearerAuth": {
			"description": "Admin token. Format: \"Bearer {token}\".",
			"type": "apiKey",
			"name": "Authorization",
			"in": "header"
		}
	}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Request Token Service API",
	Description:      "Issues single or limited use tokens that are embedded in URLs and grant scoped access to an endpoint, optionally logging the bound user in.\n\nTokens are HS256 signed JWTs. The admin API is protected by a static bearer credential.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
