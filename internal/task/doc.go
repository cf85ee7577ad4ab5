// Package task runs messaging campaigns. Every active campaign task is owned
// by exactly one execution unit, a goroutine that cycles through the task's
// messages and credentials, persists its counters after every attempt and
// reacts to pause, resume and stop signals delivered through its Handle.
//
// The Manager is the only entry point for control operations. It serializes
// operations per task id, keeps the Registry of live handles and rebuilds the
// set of units from the store after a restart.
package task
