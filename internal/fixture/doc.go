// Package fixture loads YAML descriptions of clubs, boards, privilege types,
// users and POR assignments. A fixture can be evaluated offline with the same
// evaluator the server uses, or seeded into PostgreSQL through the repositories.
//
// Entities are referenced by key. An entity without an explicit id gets one
// derived from its key, so seeding the same file twice yields the same ids.
package fixture
