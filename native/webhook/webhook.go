// Package webhook implements the webhook delivery engine (C14): signed,
// retried HTTP delivery of bus events to registered subscriptions.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Subscription is a registered delivery target for a set of event types.
// An empty Events list means "all events".
type Subscription struct {
	SubscriptionID string
	OrganizationID string
	URL            string
	Events         []string
	Secret         string
	IsActive       bool
	TotalAttempts  int64
	SuccessCount   int64
	FailCount      int64
	LastDeliveryAt *time.Time
}

// Matches reports whether the subscription wants eventType: an empty
// Events list matches everything.
func (s Subscription) Matches(eventType string) bool {
	if !s.IsActive {
		return false
	}
	if len(s.Events) == 0 {
		return true
	}
	for _, e := range s.Events {
		if e == eventType {
			return true
		}
	}
	return false
}

// Attempt records one HTTP delivery try against a subscription.
type Attempt struct {
	AttemptID      string
	SubscriptionID string
	EventID        string
	EventType      string
	URL            string
	StatusCode     int
	ResponseBody   string
	Err            string
	DurationMS     int64
	Success        bool
	AttemptNumber  int
	CreatedAt      time.Time
}

const maxResponseBodyCapture = 500

// backoffSchedule is the fixed 3-attempt delay sequence of spec.md §4.13.
var backoffSchedule = []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}

const (
	defaultTimeout   = 10 * time.Second
	defaultTolerance = 300 * time.Second
)

// Sign produces the `t=<unix>,v1=<hex hmac>` signature header value for
// payload under secret at timestamp t.
func Sign(secret string, payload []byte, t time.Time) string {
	ts := strconv.FormatInt(t.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

// Verify checks a signature header against payload and secret, rejecting
// anything outside tolerance of now or with a malformed header. Missing
// t or v1 fields, or any parse failure, is always a reject.
func Verify(secret string, payload []byte, header string, now time.Time, tolerance time.Duration) bool {
	if tolerance <= 0 {
		tolerance = defaultTolerance
	}
	var t, v1 string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			t = kv[1]
		case "v1":
			v1 = kv[1]
		}
	}
	if t == "" || v1 == "" {
		return false
	}
	ts, err := strconv.ParseInt(t, 10, 64)
	if err != nil {
		return false
	}
	skew := now.Unix() - ts
	if skew < 0 {
		skew = -skew
	}
	if time.Duration(skew)*time.Second > tolerance {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(t))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(v1)) == 1
}

// Sender performs the actual HTTP delivery. http.Client satisfies this
// directly once wrapped; kept as an interface so tests can substitute a
// fake transport without a live listener.
type Sender interface {
	Send(url string, body []byte, headers map[string]string, timeout time.Duration) (statusCode int, responseBody []byte, err error)
}

// Engine delivers events to matching active subscriptions with HMAC
// signing, a fixed 3-attempt backoff schedule, and per-subscription
// delivery counters.
type Engine struct {
	mu            sync.Mutex
	subscriptions map[string]*Subscription

	sender  Sender
	genID   func() string
	now     func() time.Time
	sleep   func(time.Duration)
	timeout time.Duration
}

// NewEngine constructs an Engine. genID supplies attempt identifiers.
func NewEngine(sender Sender, genID func() string) *Engine {
	return &Engine{
		subscriptions: make(map[string]*Subscription),
		sender:        sender,
		genID:         genID,
		now:           time.Now,
		sleep:         time.Sleep,
		timeout:       defaultTimeout,
	}
}

// Register adds or replaces a subscription.
func (e *Engine) Register(sub Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := sub
	e.subscriptions[sub.SubscriptionID] = &cp
}

// MatchingSubscriptions returns every active subscription whose Events
// list is empty or contains eventType.
func (e *Engine) MatchingSubscriptions(eventType string) []Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Subscription
	for _, s := range e.subscriptions {
		if s.Matches(eventType) {
			out = append(out, *s)
		}
	}
	return out
}

// Deliver attempts to deliver payload for eventType/eventID to sub, up to
// 3 tries on the fixed backoff schedule, stopping at the first response
// status under 300. It always returns the full attempt history, blocking
// for the duration of all attempts including backoff sleeps — callers
// that want fire-and-forget semantics should run Deliver from a tracked
// background task (see core/events).
func (e *Engine) Deliver(sub Subscription, eventID, eventType string, payload []byte) []Attempt {
	var attempts []Attempt
	const maxAttempts = 3
	for attemptNumber := 1; attemptNumber <= maxAttempts; attemptNumber++ {
		start := e.now()
		sig := Sign(sub.Secret, payload, start)
		headers := map[string]string{
			"Content-Type":         "application/json",
			"X-Agentpay-Event":     eventType,
			"X-Agentpay-Signature": sig,
		}
		status, body, err := e.sender.Send(sub.URL, payload, headers, e.timeout)
		duration := e.now().Sub(start)

		attempt := Attempt{
			AttemptID: e.genID(), SubscriptionID: sub.SubscriptionID, EventID: eventID,
			EventType: eventType, URL: sub.URL, StatusCode: status,
			ResponseBody: truncate(string(body), maxResponseBodyCapture),
			DurationMS:   duration.Milliseconds(), AttemptNumber: attemptNumber,
			Success: err == nil && status < 300, CreatedAt: start,
		}
		if err != nil {
			attempt.Err = err.Error()
		}
		attempts = append(attempts, attempt)
		e.recordCounters(sub.SubscriptionID, attempt)

		if attempt.Success {
			return attempts
		}
		if attemptNumber-1 < len(backoffSchedule) {
			e.sleep(backoffSchedule[attemptNumber-1])
		}
	}
	return attempts
}

func (e *Engine) recordCounters(subscriptionID string, attempt Attempt) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sub, ok := e.subscriptions[subscriptionID]
	if !ok {
		return
	}
	sub.TotalAttempts++
	if attempt.Success {
		sub.SuccessCount++
	} else {
		sub.FailCount++
	}
	t := attempt.CreatedAt
	sub.LastDeliveryAt = &t
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
