// Package memdb is an in-memory storage session for tests and prototypes.
package memdb
