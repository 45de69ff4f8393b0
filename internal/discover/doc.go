// Package discover finds SSH-reachable hosts on the local network
// segment without prior configuration, so a connect form can be filled
// from a picker instead of a typed address.
//
// Two sources run concurrently inside one time-bounded session: a
// DNS-SD browse for _ssh._tcp and _sftp-ssh._tcp advertisements, and a
// bounded TCP sweep of the interface's subnet (clamped to a /24 slice
// on larger networks). Both push into a single event stream returned by
// Manager.Start; Aggregator folds that stream into a deduplicated host
// list. Scanning happens only while explicitly requested: a session
// ends on its timeout or on Manager.Stop, and stopping is synchronous
// and complete before a new session may begin.
package discover
