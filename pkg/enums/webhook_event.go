package enums

// WebhookEventType names the outbound events the platform emits.
type WebhookEventType string

const (
	WebhookDatasetCreated        WebhookEventType = "dataset.created"
	WebhookDatasetMetricsUpdated WebhookEventType = "dataset.metrics_updated"
	WebhookTaskCreated           WebhookEventType = "task.created"
	WebhookTaskUpdated           WebhookEventType = "task.updated"
)

func (e WebhookEventType) String() string {
	return string(e)
}
