// Package memory provides an in-process implementation of the task store.
// It backs tests and single-node deployments that run without a database.
package memory
