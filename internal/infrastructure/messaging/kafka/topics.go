// Package kafka fans filetrack's domain events out to downstream consumers:
// notification senders, audit pipelines, and anything else that wants to
// follow files without polling the API.
package kafka

// Topic names.  Messages are keyed by file ID so all events for one file
// land in the same partition, preserving per-file ordering.
const (
	// TopicFileReceived carries one event per accepted upload.
	TopicFileReceived = "filetrack.file.received"
	// TopicAlertRaised carries overdue and reminder alerts.
	TopicAlertRaised = "filetrack.alert.raised"
	// TopicEscalationRaised carries escalation-level changes.
	TopicEscalationRaised = "filetrack.escalation.raised"
)

// AllTopics lists every topic the producer writes, for provisioning.
var AllTopics = []string{
	TopicFileReceived,
	TopicAlertRaised,
	TopicEscalationRaised,
}
