// Package aggregates contains infrastructure implementations of domain aggregate contracts.
//
// Implementations in this package compose table-level repos from internal/data/repos
// and own transaction boundaries for invariant-critical write operations.
// Cascading updates are planned by IntegrityEnforcer before they are applied;
// bulk stages go through BatchWriter so a bad row degrades to per-row inserts.
package aggregates
