package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mixelka/mailhook/internal/graph"
	"github.com/mixelka/mailhook/pkg/models"
)

func TestCategoryFirstMatchingTagWins(t *testing.T) {
	c := NewClassifier("Bloomberg", "Shuchuang", discardLogger())

	tests := []struct {
		name string
		tags []string
		want models.Category
	}{
		{"plain", []string{"Bloomberg"}, models.CategoryPlain},
		{"attachment", []string{"Shuchuang"}, models.CategoryAttachment},
		{"case insensitive", []string{"bloomberg"}, models.CategoryPlain},
		{"first match wins", []string{"Red", "Shuchuang", "Bloomberg"}, models.CategoryAttachment},
		{"no tags", nil, models.CategoryUnclassified},
		{"unknown tag", []string{"Newsletters"}, models.CategoryUnclassified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Category(&graph.Message{Categories: tt.tags}))
		})
	}
}

func TestClassifyKeepsTextBodies(t *testing.T) {
	c := NewClassifier("Bloomberg", "Shuchuang", discardLogger())
	msg := plainMessage("m1")
	msg.Body = graph.ItemBody{ContentType: "text", Content: "<not html>"}

	out, err := c.Classify(&Resolved{Message: msg, Category: models.CategoryPlain})
	require.NoError(t, err)
	require.NotNil(t, out.Email)
	assert.Equal(t, "<not html>", out.Email.Body)
	assert.Equal(t, "Bloomberg", out.Email.Category)
}

func TestClassifyRejectsBadTimestamp(t *testing.T) {
	c := NewClassifier("Bloomberg", "Shuchuang", discardLogger())
	msg := plainMessage("m1")
	msg.ReceivedDateTime = ""

	_, err := c.Classify(&Resolved{Message: msg, Category: models.CategoryPlain})
	assert.Error(t, err)
}

func TestClassifyAttachmentEdgeCases(t *testing.T) {
	c := NewClassifier("Bloomberg", "Shuchuang", discardLogger())
	msg := attachmentMessage("m2")

	// No attachments
	out, err := c.Classify(&Resolved{Message: msg, Category: models.CategoryAttachment, Attachments: &graph.AttachmentSet{MessageID: "m2"}})
	require.NoError(t, err)
	assert.Nil(t, out.Attachment)

	// Item attachment without bytes
	item := graph.Attachment{ODataType: "#microsoft.graph.itemAttachment", ID: "i1"}
	out, err = c.Classify(&Resolved{Message: msg, Category: models.CategoryAttachment, Attachments: &graph.AttachmentSet{Items: []graph.Attachment{item}}})
	require.NoError(t, err)
	assert.Nil(t, out.Attachment)

	// Corrupt content
	bad := fileAttachment("a1")
	bad.ContentBytes = "not base64!"
	_, err = c.Classify(&Resolved{Message: msg, Category: models.CategoryAttachment, Attachments: &graph.AttachmentSet{Items: []graph.Attachment{bad}}})
	assert.Error(t, err)
}
