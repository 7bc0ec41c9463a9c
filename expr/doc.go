// Package expr models filter and projection expressions as immutable trees,
// renders them as readable strings for tracing, and evaluates them in memory.
package expr
