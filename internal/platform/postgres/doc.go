// Package postgres stores campaign tasks in PostgreSQL. It owns the goose
// migrations for the tasks table and translates driver errors into the
// sentinels of the store package.
package postgres
