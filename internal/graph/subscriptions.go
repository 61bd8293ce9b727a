package graph

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// FolderMessagesResource returns the subscription resource for new messages in a folder
func FolderMessagesResource(folderID string) string {
	return "me/mailFolders/" + folderID + "/messages"
}

// CreateSubscription registers a new change-notification subscription. The
// provider validates the notification URL before answering.
func (c *Client) CreateSubscription(ctx context.Context, sub Subscription) (*Subscription, error) {
	var created Subscription
	if err := c.do(ctx, http.MethodPost, "subscriptions", nil, sub, &created); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	if created.ID == "" {
		return nil, fmt.Errorf("failed to create subscription: response has no id")
	}
	return &created, nil
}

// RenewSubscription moves the expiration of an existing subscription
func (c *Client) RenewSubscription(ctx context.Context, id string, expiration time.Time) (*Subscription, error) {
	patch := Subscription{ExpirationDateTime: FormatTime(expiration)}

	var renewed Subscription
	if err := c.do(ctx, http.MethodPatch, "subscriptions/"+url.PathEscape(id), nil, patch, &renewed); err != nil {
		return nil, fmt.Errorf("failed to renew subscription %s: %w", id, err)
	}
	if renewed.ID == "" {
		renewed.ID = id
	}
	if renewed.ExpirationDateTime == "" {
		renewed.ExpirationDateTime = patch.ExpirationDateTime
	}
	return &renewed, nil
}

// Expiration returns the parsed expiration time of the subscription
func (s *Subscription) Expiration() (time.Time, error) {
	return ParseTime(s.ExpirationDateTime)
}
