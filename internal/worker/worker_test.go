package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/internal/notifications"
	"github.com/skillforge/marketplace/pkg/queue"
)

type memLists struct {
	mu    sync.Mutex
	lists map[string][]string
}

func (m *memLists) RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range values {
		m.lists[key] = append(m.lists[key], string(v.([]byte)))
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(m.lists[key])))
	return cmd
}

func (m *memLists) BLPop(ctx context.Context, _ time.Duration, keys ...string) *redis.StringSliceCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := redis.NewStringSliceCmd(ctx)
	for _, k := range keys {
		if l := m.lists[k]; len(l) > 0 {
			m.lists[k] = l[1:]
			cmd.SetVal([]string{k, l[0]})
			return cmd
		}
	}
	cmd.SetErr(redis.Nil)
	return cmd
}

func (m *memLists) len(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lists[key])
}

type flakySender struct {
	mu       sync.Mutex
	failures int
	sent     []notifications.Message
}

func (s *flakySender) Send(_ context.Context, msg notifications.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures != 0 {
		s.failures--
		return errors.New("smtp unavailable")
	}
	s.sent = append(s.sent, msg)
	return nil
}

type memLogs struct {
	mu   sync.Mutex
	rows []models.EmailLog
}

func (l *memLogs) Create(_ context.Context, el *models.EmailLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	el.ID = uuid.New()
	l.rows = append(l.rows, *el)
	return nil
}

func (l *memLogs) statuses() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, r := range l.rows {
		out = append(out, r.Status)
	}
	return out
}

func enqueue(t *testing.T, q *queue.Queue) {
	t.Helper()
	userID := uuid.New()
	_, err := q.EnqueueEmail(context.Background(), queue.EmailPayload{
		EmailType:      models.EmailTypeOrderConfirmation,
		UserID:         &userID,
		Reference:      "ORD-1",
		RecipientEmail: "buyer@example.com",
		Subject:        "Order ORD-1 confirmed",
		BodyHTML:       "<p>thanks</p>",
	})
	require.NoError(t, err)
}

func runUntil(t *testing.T, p *EmailProcessor, done func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(finished)
	}()
	assert.Eventually(t, done, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-finished
}

func TestRetryThenSend(t *testing.T) {
	lists := &memLists{lists: make(map[string][]string)}
	q := queue.NewQueue(lists, "", nil)
	sender := &flakySender{failures: 1}
	logs := &memLogs{}
	p := NewEmailProcessor(q, sender, logs, time.Millisecond, nil)

	enqueue(t, q)
	runUntil(t, p, func() bool { return len(logs.statuses()) == 2 })

	assert.Equal(t, []string{models.EmailLogStatusFailed, models.EmailLogStatusSent}, logs.statuses())
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "buyer@example.com", sender.sent[0].To)
	assert.Equal(t, 2, logs.rows[1].Attempt)
	assert.NotNil(t, logs.rows[1].SentAt)
	assert.Equal(t, "ORD-1", logs.rows[1].Reference)
	assert.Zero(t, lists.len(queue.QueueDLQ))
}

func TestDeadLetterAfterMaxRetries(t *testing.T) {
	lists := &memLists{lists: make(map[string][]string)}
	q := queue.NewQueue(lists, "", nil)
	sender := &flakySender{failures: -1}
	logs := &memLogs{}
	p := NewEmailProcessor(q, sender, logs, time.Millisecond, nil)

	enqueue(t, q)
	runUntil(t, p, func() bool { return lists.len(queue.QueueDLQ) == 1 })

	assert.Len(t, logs.statuses(), queue.MaxRetries)
	for _, s := range logs.statuses() {
		assert.Equal(t, models.EmailLogStatusFailed, s)
	}
	assert.Empty(t, sender.sent)
	assert.Zero(t, lists.len(queue.QueueEmails))
}

func TestProcessRejectsUnknownJob(t *testing.T) {
	p := NewEmailProcessor(nil, &flakySender{}, &memLogs{}, 0, nil)
	err := p.Process(context.Background(), &queue.Job{ID: "x", Type: "video"})
	assert.Error(t, err)
}
