package ws

import (
	"github.com/tagforge/tagsync/cmd/tagsync/models"
)

// Message type strings are the wire contract shared with existing
// clients; the values must match exactly.
const (
	// client -> server
	MsgSubscribe   = "subscribe"
	MsgUnsubscribe = "unsubscribe"
	MsgSyncTags    = "sync_tags"
	MsgPing        = "ping"

	// server -> client
	MsgTagsUpdated = "tags_updated"
	MsgSyncQueued  = "sync_queued"
	MsgError       = "error"
	MsgPong        = "pong"
)

// clientMessage is the decoded shape of every client frame
type clientMessage struct {
	Type       string `json:"type"`
	ProjectID  string `json:"projectId,omitempty"`
	Vendor     string `json:"vendor,omitempty"`
	STCode     string `json:"stCode,omitempty"`
	DebounceMs *int   `json:"debounceMs,omitempty"`
}

// serverMessage covers sync_queued, error and pong frames
type serverMessage struct {
	Type      string `json:"type"`
	ProjectID string `json:"projectId,omitempty"`
	SyncID    string `json:"syncId,omitempty"`
	Message   string `json:"message,omitempty"`
}

// tagsUpdatedMessage always carries the tags field, even when the
// project has no tags
type tagsUpdatedMessage struct {
	Type      string       `json:"type"`
	ProjectID string       `json:"projectId"`
	Tags      []models.Tag `json:"tags"`
}

func newTagsUpdated(projectID string, tags []models.Tag) tagsUpdatedMessage {
	if tags == nil {
		tags = []models.Tag{}
	}
	return tagsUpdatedMessage{
		Type:      MsgTagsUpdated,
		ProjectID: projectID,
		Tags:      tags,
	}
}
