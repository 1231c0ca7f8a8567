// Package services contains stateless domain services: pure business logic
// that spans aggregates and therefore does not belong to any single one.
package services
