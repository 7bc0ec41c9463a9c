// Package repository provides a generic repository over a storage session:
// staged writes, identity-addressed updates, filtered and projected reads,
// eager-load resolution, and pagination.
package repository
