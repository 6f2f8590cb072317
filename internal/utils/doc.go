// Package utils holds small helpers shared across the application:
// filename sanitizing, file probing, content type checks and default request headers.
package utils
