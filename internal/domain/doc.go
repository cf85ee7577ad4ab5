// Package domain contains the core business entities of the relay service:
// campaign tasks, their immutable configuration, lifecycle status and
// delivery counters. It is independent of any storage or transport.
package domain
