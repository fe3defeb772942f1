// Package aggregates defines domain-facing aggregate contracts.
//
// These contracts avoid persistence/transport details and describe semantic
// write boundaries: single-record writes are atomic, bulk writes isolate
// failures per item. The collaborator interfaces the aggregates consume
// (sites, species catalog, membership, change recording) live here too.
package aggregates
