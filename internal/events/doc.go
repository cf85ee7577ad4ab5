// Package events provides types and interfaces for task lifecycle events.
//
// Execution units and the lifecycle manager emit events without knowing which
// handlers will process them. Delivery is best effort: a failing or slow
// handler never blocks or fails the emitting task.
//
// The primary components are:
// - TaskEvent: a delivery or status change of one campaign task
// - EventHandler / EventEmitter: the fan-out contract
// - Broadcaster: a handler that streams events to live subscribers
package events
