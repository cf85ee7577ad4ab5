// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the task lifecycle manager, which never assumes a particular
// persistence technology.
package store
