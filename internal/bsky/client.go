// Package bsky is the Bluesky transport for the monitoring engine. It
// wraps the handful of XRPC endpoints the engine consumes and decodes
// wire payloads into the shapes the analyzer works with. Failures come
// back as errors; callers decide whether absence is fatal.
package bsky

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"

	"github.com/nvandessel/threadwatch/internal/models"
)

const (
	defaultHost = "https://bsky.social"

	endpointCreateSession     = "com.atproto.server.createSession"
	endpointGetPostThread     = "app.bsky.feed.getPostThread"
	endpointGetProfile        = "app.bsky.actor.getProfile"
	endpointListNotifications = "app.bsky.notification.listNotifications"
)

// Transport is the subset of the Bluesky API the engine consumes.
// Implementations return an error when data could not be fetched; the
// engine treats that as "absent, try later", never as a crash.
type Transport interface {
	// GetThread fetches the reply tree under uri, depth levels deep.
	GetThread(ctx context.Context, uri string, depth int) (*ThreadNode, error)

	// GetProfile fetches the profile of a DID or handle.
	GetProfile(ctx context.Context, actor string) (*models.InterlocutorProfile, error)

	// ListNotifications fetches the newest notifications for the
	// authenticated account, newest first.
	ListNotifications(ctx context.Context, limit int) ([]Notification, error)
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// Host is the PDS base URL. Defaults to https://bsky.social.
	Host string

	// Identifier and AppPassword authenticate the session. Without
	// them the client stays unauthenticated; public endpoints still
	// work but the notification feed does not.
	Identifier  string
	AppPassword string

	// Timeout bounds each HTTP call.
	Timeout time.Duration

	// MaxRetries, RetryBaseDelay and RetryMaxDelay shape the retry
	// backoff for transient failures.
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// Client talks to a Bluesky PDS. It implements Transport.
type Client struct {
	host       string
	identifier string
	password   string

	http *http.Client
	exec failsafe.Executor[*http.Response]

	accessJwt string
	did       string
}

// NewClient creates a Bluesky API client with the given configuration.
func NewClient(cfg ClientConfig) *Client {
	host := strings.TrimSuffix(cfg.Host, "/")
	if host == "" {
		host = defaultHost
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		host:       host,
		identifier: cfg.Identifier,
		password:   cfg.AppPassword,
		http:       &http.Client{Timeout: timeout},
		exec:       newExecutor(cfg.MaxRetries, cfg.RetryBaseDelay, cfg.RetryMaxDelay),
	}
}

// DID returns the session DID once authenticated, or "".
func (c *Client) DID() string {
	return c.did
}

type wireSession struct {
	AccessJwt string `json:"accessJwt"`
	Did       string `json:"did"`
	Handle    string `json:"handle"`
}

// Login establishes an authenticated session using the configured
// identifier and app password.
func (c *Client) Login(ctx context.Context) error {
	if c.identifier == "" || c.password == "" {
		return fmt.Errorf("no credentials configured")
	}

	body := map[string]string{
		"identifier": c.identifier,
		"password":   c.password,
	}
	var session wireSession
	if err := c.call(ctx, http.MethodPost, endpointCreateSession, nil, body, &session); err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	if session.AccessJwt == "" {
		return fmt.Errorf("session response missing access token")
	}

	c.accessJwt = session.AccessJwt
	c.did = session.Did
	return nil
}

// ensureSession logs in lazily before the first authenticated call.
func (c *Client) ensureSession(ctx context.Context) error {
	if c.accessJwt != "" {
		return nil
	}
	return c.Login(ctx)
}

type wireThreadResponse struct {
	Thread wireThreadNode `json:"thread"`
}

type wireThreadNode struct {
	Post    *wirePost        `json:"post,omitempty"`
	Replies []wireThreadNode `json:"replies,omitempty"`
}

type wirePost struct {
	URI    string     `json:"uri"`
	Author Author     `json:"author"`
	Record wireRecord `json:"record"`
}

type wireRecord struct {
	Text      string        `json:"text,omitempty"`
	CreatedAt string        `json:"createdAt,omitempty"`
	Reply     *wireReplyRef `json:"reply,omitempty"`
}

type wireReplyRef struct {
	Root   wireStrongRef `json:"root"`
	Parent wireStrongRef `json:"parent"`
}

type wireStrongRef struct {
	URI string `json:"uri"`
}

// GetThread fetches the reply tree under uri. Blocked and deleted
// nodes are dropped; their subtrees are unreachable anyway.
func (c *Client) GetThread(ctx context.Context, uri string, depth int) (*ThreadNode, error) {
	if depth <= 0 {
		depth = 6
	}
	query := url.Values{
		"uri":   []string{uri},
		"depth": []string{strconv.Itoa(depth)},
	}

	var resp wireThreadResponse
	if err := c.call(ctx, http.MethodGet, endpointGetPostThread, query, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching thread %s: %w", uri, err)
	}

	node := convertThreadNode(resp.Thread)
	if node == nil {
		return nil, fmt.Errorf("thread %s not available", uri)
	}
	return node, nil
}

func convertThreadNode(w wireThreadNode) *ThreadNode {
	if w.Post == nil || w.Post.URI == "" {
		return nil
	}
	node := &ThreadNode{
		Post: &Post{
			URI:       w.Post.URI,
			Author:    w.Post.Author,
			Text:      w.Post.Record.Text,
			CreatedAt: parseTime(w.Post.Record.CreatedAt),
		},
	}
	for _, r := range w.Replies {
		if child := convertThreadNode(r); child != nil {
			node.Replies = append(node.Replies, child)
		}
	}
	return node
}

type wireProfile struct {
	Did            string `json:"did"`
	Handle         string `json:"handle"`
	DisplayName    string `json:"displayName,omitempty"`
	Description    string `json:"description,omitempty"`
	FollowersCount int    `json:"followersCount"`
	FollowsCount   int    `json:"followsCount"`
	PostsCount     int    `json:"postsCount"`
}

// GetProfile fetches the profile of a DID or handle.
func (c *Client) GetProfile(ctx context.Context, actor string) (*models.InterlocutorProfile, error) {
	query := url.Values{"actor": []string{actor}}

	var w wireProfile
	if err := c.call(ctx, http.MethodGet, endpointGetProfile, query, nil, &w); err != nil {
		return nil, fmt.Errorf("fetching profile %s: %w", actor, err)
	}
	return &models.InterlocutorProfile{
		DID:            w.Did,
		Handle:         w.Handle,
		DisplayName:    w.DisplayName,
		Description:    w.Description,
		FollowersCount: w.FollowersCount,
		FollowsCount:   w.FollowsCount,
		PostsCount:     w.PostsCount,
	}, nil
}

type wireNotificationList struct {
	Notifications []wireNotification `json:"notifications"`
}

type wireNotification struct {
	URI       string     `json:"uri"`
	Reason    string     `json:"reason"`
	Author    Author     `json:"author"`
	Record    wireRecord `json:"record"`
	IndexedAt string     `json:"indexedAt"`
	IsRead    bool       `json:"isRead"`
}

// ListNotifications fetches the newest notifications, newest first.
// Requires credentials.
func (c *Client) ListNotifications(ctx context.Context, limit int) ([]Notification, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, fmt.Errorf("authenticating: %w", err)
	}
	if limit <= 0 {
		limit = 50
	}
	query := url.Values{"limit": []string{strconv.Itoa(limit)}}

	var resp wireNotificationList
	if err := c.call(ctx, http.MethodGet, endpointListNotifications, query, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching notifications: %w", err)
	}

	out := make([]Notification, 0, len(resp.Notifications))
	for _, w := range resp.Notifications {
		n := Notification{
			URI:       w.URI,
			Reason:    w.Reason,
			Author:    w.Author,
			Text:      w.Record.Text,
			RootURI:   w.URI,
			IndexedAt: parseTime(w.IndexedAt),
			IsRead:    w.IsRead,
		}
		if w.Record.Reply != nil && w.Record.Reply.Root.URI != "" {
			n.RootURI = w.Record.Reply.Root.URI
		}
		out = append(out, n)
	}
	return out, nil
}

// call performs one XRPC request with retries, decoding the JSON
// response into out. The request is rebuilt per attempt so retried
// POSTs carry a fresh body.
func (c *Client) call(ctx context.Context, method, endpoint string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
	}

	endpointURL := c.host + "/xrpc/" + endpoint
	if len(query) > 0 {
		endpointURL += "?" + query.Encode()
	}

	resp, err := c.exec.WithContext(ctx).Get(func() (*http.Response, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpointURL, reader)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.accessJwt != "" && endpoint != endpointCreateSession {
			req.Header.Set("Authorization", "Bearer "+c.accessJwt)
		}

		resp, err := c.http.Do(req)
		if err == nil && resp != nil && shouldRetry(resp, nil) {
			// Drain before the retry so the connection is reusable.
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		return resp, err
	})
	if err != nil {
		return fmt.Errorf("calling %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s response: %w", endpoint, err)
	}
	return nil
}

// parseTime decodes an RFC3339 timestamp, tolerating the malformed
// values third-party clients sometimes write into records. Unparseable
// times come back zero and simply never win a latest-activity compare.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
