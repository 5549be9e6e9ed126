// Package bigsegments provides the big segment storage integration: a Redis-backed
// store of per-user segment memberships, and a caching wrapper that adapts the store
// to the evaluator's BigSegmentProvider interface.
//
// Big segment data is written to the database by an external synchronizer process;
// this package only reads it. The store layout is one Redis set of segment references
// per user hash for inclusions, another for exclusions, and a timestamp key recording
// when the data was last synchronized.
package bigsegments
