// Package api handles incoming HTTP requests, request validation, and
// response formatting. It adapts the task manager and the admin
// authenticator to a JSON API and streams task events over SSE.
package api
