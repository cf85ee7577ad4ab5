// Package delivery defines the outbound messaging contract used by campaign
// execution units. Implementations live in internal/platform.
package delivery
