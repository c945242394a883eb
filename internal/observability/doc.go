// Package observability provides the durable audit trail, notification
// channels, metrics calculation, and alerting for the task loop. It uses
// structured JSON Lines (JSONL) partitioned by day for audit persistence
// and derives metrics on demand from the audit log.
package observability
