// Package ldstream implements the streaming data source: a client for the LaunchDarkly
// server-sent-events stream that keeps a data store up to date with flag and segment
// changes.
package ldstream
