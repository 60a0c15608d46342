// Package api handles incoming HTTP requests, request validation and response
// formatting. It translates HTTP requests into task runner submissions and
// lookups, and runner and store errors into HTTP status codes.
package api
