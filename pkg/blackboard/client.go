package blackboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Client provides session-scoped Redis operations for the blackboard.
// All keys and channels are automatically namespaced with the session ID.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb       *redis.Client
	sessionID string
}

// NewClient creates a new blackboard client for the specified session.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - sessionID: session identifier (must not be empty)
//
// Returns an error if sessionID is empty.
func NewClient(redisOpts *redis.Options, sessionID string) (*Client, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID cannot be empty")
	}

	return &Client{
		rdb:       redis.NewClient(redisOpts),
		sessionID: sessionID,
	}, nil
}

// SessionID returns the session the client is bound to.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// PutSession writes the session hash. Calling it again overwrites the fields, which is
// how the status moves from running to completed or aborted.
func (c *Client) PutSession(ctx context.Context, s *SessionInfo) error {
	if s.ID != c.sessionID {
		return fmt.Errorf("session %s does not belong to client for %s", s.ID, c.sessionID)
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}

	hash, err := SessionToHash(s)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	if err := c.rdb.HSet(ctx, SessionKey(c.sessionID), hash).Err(); err != nil {
		return fmt.Errorf("failed to write session to Redis: %w", err)
	}
	return nil
}

// SetStatus updates only the session status.
func (c *Client) SetStatus(ctx context.Context, status SessionStatus) error {
	if err := status.Validate(); err != nil {
		return err
	}
	if err := c.rdb.HSet(ctx, SessionKey(c.sessionID), "status", string(status)).Err(); err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	return nil
}

// GetSession reads the session hash.
// Returns (nil, redis.Nil) if the session doesn't exist. Use IsNotFound() to check.
func (c *Client) GetSession(ctx context.Context) (*SessionInfo, error) {
	hashData, err := c.rdb.HGetAll(ctx, SessionKey(c.sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	s, err := HashToSession(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize session: %w", err)
	}
	return s, nil
}

// RecordTrial appends the event to the session's trial list and publishes it.
func (c *Client) RecordTrial(ctx context.Context, e *TrialEvent) error {
	if e.SessionID != c.sessionID {
		return fmt.Errorf("trial event for session %s sent to client for %s", e.SessionID, c.sessionID)
	}
	if err := e.Validate(); err != nil {
		return fmt.Errorf("invalid trial event: %w", err)
	}

	eventJSON, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal trial event: %w", err)
	}

	if err := c.rdb.RPush(ctx, TrialsKey(c.sessionID), eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to append trial event: %w", err)
	}

	if err := c.rdb.Publish(ctx, TrialEventsChannel(c.sessionID), eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish trial event: %w", err)
	}

	return nil
}

// ListTrials returns every recorded trial event in recording order.
func (c *Client) ListTrials(ctx context.Context) ([]*TrialEvent, error) {
	raw, err := c.rdb.LRange(ctx, TrialsKey(c.sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read trial events: %w", err)
	}

	events := make([]*TrialEvent, 0, len(raw))
	for i, item := range raw {
		var e TrialEvent
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trial event %d: %w", i, err)
		}
		events = append(events, &e)
	}
	return events, nil
}

// Subscription represents an active Pub/Sub subscription to trial events.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan *TrialEvent
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of trial events.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan *TrialEvent {
	return s.events
}

// Errors returns the channel of subscription errors.
// The subscription continues after errors - messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeTrialEvents subscribes to trial events for this session.
// Events are delivered on a buffered channel (size 10). Redis Pub/Sub is at-most-once;
// use ListTrials to catch up on events recorded before subscribing.
func (c *Client) SubscribeTrialEvents(ctx context.Context) (*Subscription, error) {
	pubsub := c.rdb.Subscribe(ctx, TrialEventsChannel(c.sessionID))

	// Wait for the subscription to be confirmed so no event published after this
	// call returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to trial events: %w", err)
	}

	eventsChan := make(chan *TrialEvent, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event TrialEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal trial event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error (redis.Nil).
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}

// ScanSessions returns the IDs of every session announced on rdb whose ID starts
// with prefix, sorted. prefix may only contain hex digits and hyphens.
func ScanSessions(ctx context.Context, rdb *redis.Client, prefix string) ([]string, error) {
	for _, r := range prefix {
		if !strings.ContainsRune("0123456789abcdefABCDEF-", r) {
			return nil, fmt.Errorf("invalid session ID prefix: %q", prefix)
		}
	}

	var ids []string
	iter := rdb.Scan(ctx, 0, SessionKey(strings.ToLower(prefix)+"*"), 100).Iterator()
	for iter.Next(ctx) {
		if id := SessionIDFromKey(iter.Val()); id != "" {
			ids = append(ids, id)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}

	sort.Strings(ids)
	return ids, nil
}
