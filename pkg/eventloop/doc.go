// Package eventloop provides the serialized dispatch fabric spec §5
// requires: every hook invocated for a given handle happens on a single
// ordered queue, so two events for the same handle are never processed
// concurrently, while events for different handles still run in parallel.
package eventloop
