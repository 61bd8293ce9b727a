package graph

// Folder is a mail folder
type Folder struct {
	ID               string `json:"id"`
	DisplayName      string `json:"displayName"`
	TotalItemCount   int    `json:"totalItemCount"`
	ChildFolderCount int    `json:"childFolderCount"`
}

// ItemBody is the body of a message
type ItemBody struct {
	ContentType string `json:"contentType"` // "html" or "text"
	Content     string `json:"content"`
}

// EmailAddress is a named address
type EmailAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Recipient wraps an address the way the API nests it
type Recipient struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

// Message is a mail message as returned by the API. Timestamps are kept as
// the raw ISO-8601 strings and normalized by the caller.
type Message struct {
	ID               string    `json:"id"`
	Subject          string    `json:"subject"`
	Body             ItemBody  `json:"body"`
	BodyPreview      string    `json:"bodyPreview"`
	ReceivedDateTime string    `json:"receivedDateTime"`
	From             Recipient `json:"from"`
	Categories       []string  `json:"categories"`
	HasAttachments   bool      `json:"hasAttachments"`
	ParentFolderID   string    `json:"parentFolderId"`
}

// FileAttachmentType is the OData type of attachments carrying content bytes
const FileAttachmentType = "#microsoft.graph.fileAttachment"

// Attachment is a message attachment
type Attachment struct {
	ODataType            string `json:"@odata.type"`
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	ContentType          string `json:"contentType"`
	Size                 int64  `json:"size"`
	IsInline             bool   `json:"isInline"`
	LastModifiedDateTime string `json:"lastModifiedDateTime"`
	ContentBytes         string `json:"contentBytes"` // base64
}

// AttachmentSet is the attachment list of one message
type AttachmentSet struct {
	MessageID string
	Items     []Attachment
}

// Subscription is a change-notification subscription
type Subscription struct {
	ID                 string `json:"id,omitempty"`
	ChangeType         string `json:"changeType,omitempty"`
	NotificationURL    string `json:"notificationUrl,omitempty"`
	Resource           string `json:"resource,omitempty"`
	ExpirationDateTime string `json:"expirationDateTime"`
	ClientState        string `json:"clientState,omitempty"`
}

// listResponse is the envelope of collection responses
type listResponse[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}
