package bsky

import "time"

// Author identifies a post author.
type Author struct {
	DID    string `json:"did"`
	Handle string `json:"handle,omitempty"`
}

// Post is one post inside a thread tree.
type Post struct {
	URI       string    `json:"uri"`
	Author    Author    `json:"author"`
	Text      string    `json:"text,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ThreadNode is one node of a fetched reply tree. Nodes the server
// refused to return (blocked or deleted posts) are dropped during
// decoding, so a non-nil node always carries a post.
type ThreadNode struct {
	Post    *Post         `json:"post"`
	Replies []*ThreadNode `json:"replies,omitempty"`
}

// Notification is one entry from the account's notification feed.
type Notification struct {
	URI    string `json:"uri"`
	Reason string `json:"reason"`
	Author Author `json:"author"`
	Text   string `json:"text,omitempty"`

	// RootURI is the thread root this notification belongs to: the
	// reply ref's root when present, otherwise the subject post itself.
	RootURI string `json:"root_uri"`

	IndexedAt time.Time `json:"indexed_at"`
	IsRead    bool      `json:"is_read"`
}
