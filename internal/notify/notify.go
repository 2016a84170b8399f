// Package notify carries user-visible toasts from the dashboard to the renderer.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fakhrymubarak/skyglow-weather/internal/config"
)

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notification is one toast.
type Notification struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Variant     Variant   `json:"variant"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Error builds a destructive toast with the standard "Error" title.
func Error(description string) Notification {
	return Notification{Title: "Error", Description: description, Variant: VariantDestructive}
}

type Notifier interface {
	Notify(n Notification)
}

// Queue buffers toasts until the renderer drains them. The oldest are dropped past max.
type Queue struct {
	mu      sync.Mutex
	pending []Notification
	max     int
}

func NewQueue(max int) *Queue {
	if max <= 0 {
		max = 20
	}
	return &Queue{max: max}
}

func (q *Queue) Notify(n Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, n)
	if len(q.pending) > q.max {
		q.pending = q.pending[len(q.pending)-q.max:]
	}
}

// Drain returns and clears the pending toasts.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

// Log writes each toast to the zap logger, then forwards it to Next if set.
type Log struct {
	Next Notifier
}

func (l Log) Notify(n Notification) {
	config.GetLogger().Infow("Notification", "title", n.Title, "description", n.Description, "variant", n.Variant)
	if l.Next != nil {
		l.Next.Notify(n)
	}
}
