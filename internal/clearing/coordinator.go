package clearing

import (
	"sync"

	"pairlink-server/internal/models"
)

// FeedAction labels a change-feed event
type FeedAction string

const (
	FeedInsert FeedAction = "insert"
	FeedUpdate FeedAction = "update"
)

// FeedEvent is the payload pushed over the change feed whenever a clear
// request relevant to a user is inserted or changes status.
type FeedEvent struct {
	Action  FeedAction          `json:"action"`
	Request models.ClearRequest `json:"request"`
}

// Prompt identifies the single dialog a user should currently be shown
type Prompt string

const (
	// PromptCompose: idle, the user may send a new clear request
	PromptCompose Prompt = "compose"
	// PromptRespond: an incoming pending request awaits accept/deny
	PromptRespond Prompt = "respond"
	// PromptReconfirm: the user's outgoing request was accepted and awaits
	// the explicit final confirmation before the executor is invoked
	PromptReconfirm Prompt = "reconfirm"
	// PromptDeniedNotice: one-time notice that an outgoing request was denied
	PromptDeniedNotice Prompt = "denied_notice"
)

// Coordinator is the client-side cache of clear-request state for one user.
// It is fed only by the initial reconciling fetch and by feed events; the
// transition table is the sole arbiter of which updates it accepts. Event
// handlers run sequentially per client, but Prompt queries may come from a
// render loop, so access is guarded by a mutex.
type Coordinator struct {
	mu       sync.Mutex
	userID   string
	requests map[string]models.ClearRequest
	// denial notices already acknowledged, keyed by request id
	acked map[string]bool
}

// NewCoordinator creates a coordinator for the given user
func NewCoordinator(userID string) *Coordinator {
	return &Coordinator{
		userID:   userID,
		requests: make(map[string]models.ClearRequest),
		acked:    make(map[string]bool),
	}
}

// Reconcile seeds the cache from a one-shot fetch of the latest relevant
// rows. It must be called after every (re)connect, since the feed is
// best-effort and transitions may have been missed while disconnected.
func (c *Coordinator) Reconcile(requests ...models.ClearRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, req := range requests {
		if req.ID == "" {
			continue
		}
		c.store(req)
	}
}

// Apply ingests a single feed event
func (c *Coordinator) Apply(ev FeedEvent) {
	if ev.Request.ID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store(ev.Request)
}

// store upserts a request, rejecting stale updates that would move a row
// backwards through the state machine. Caller holds the mutex.
func (c *Coordinator) store(req models.ClearRequest) {
	if existing, ok := c.requests[req.ID]; ok {
		if existing.Status != req.Status && !CanTransition(existing.Status, req.Status) {
			return
		}
	}
	c.requests[req.ID] = req
}

// AcknowledgeDenial marks a denial notice as seen. The request is treated as
// resolved afterwards; no retry is offered and the user must compose a new
// request to try again.
func (c *Coordinator) AcknowledgeDenial(requestID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acked[requestID] = true
}

// Active returns the one prompt that should currently be shown, with the
// request it concerns (nil for PromptCompose). Priority when several rows
// qualify: an incoming pending request outranks the user's own reconfirmation,
// which outranks an unacknowledged denial notice. Within a class the most
// recently updated row wins.
func (c *Coordinator) Active() (Prompt, *models.ClearRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var respond, reconfirm, denied *models.ClearRequest
	for id := range c.requests {
		req := c.requests[id]
		switch {
		case req.ReceiverID == c.userID && req.Status == models.ClearRequestStatusPending:
			respond = newer(respond, req)
		case req.SenderID == c.userID && req.Status == models.ClearRequestStatusAccepted:
			reconfirm = newer(reconfirm, req)
		case req.SenderID == c.userID && req.Status == models.ClearRequestStatusDenied && !c.acked[req.ID]:
			denied = newer(denied, req)
		}
	}

	switch {
	case respond != nil:
		return PromptRespond, respond
	case reconfirm != nil:
		return PromptReconfirm, reconfirm
	case denied != nil:
		return PromptDeniedNotice, denied
	}
	return PromptCompose, nil
}

// newer picks the request with the later update time
func newer(current *models.ClearRequest, candidate models.ClearRequest) *models.ClearRequest {
	if current == nil || candidate.UpdatedAt.After(current.UpdatedAt) {
		req := candidate
		return &req
	}
	return current
}
