package models

// Notification is one change notification pushed by the provider to the webhook
type Notification struct {
	Resource       string `json:"resource"`
	SubscriptionID string `json:"subscriptionId"`
	ClientState    string `json:"clientState"`
	ChangeType     string `json:"changeType,omitempty"`
}

// NotificationBatch is the body of a webhook delivery
type NotificationBatch struct {
	Value []Notification `json:"value"`
}
