package design

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"tattoo-ai-api/pkg/logger"
)

const EventRecordLogged = "record.logged"

// Event 记录交付后的通知
type Event struct {
	Type       string    `json:"type"`
	RecordID   string    `json:"record_id"`
	UserID     string    `json:"user_id"`
	Kind       string    `json:"kind"`
	Confidence int       `json:"confidence"`
	At         time.Time `json:"at"`
}

// EventPublisher 外部发布端口（Redis pub/sub）
type EventPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) (int64, error)
}

// Notifier 进程内发布订阅，可选转发到外部频道。
// 订阅者缓冲区满时丢弃事件，发布方不会被阻塞。
type Notifier struct {
	mu      sync.RWMutex
	subs    map[int]chan Event
	next    int
	remote  EventPublisher
	channel string
}

func NewNotifier(remote EventPublisher, channel string) *Notifier {
	return &Notifier{
		subs:    make(map[int]chan Event),
		remote:  remote,
		channel: channel,
	}
}

// Subscribe 返回事件通道与取消函数
func (n *Notifier) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	n.mu.Lock()
	id := n.next
	n.next++
	n.subs[id] = ch
	n.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
			close(ch)
		})
	}
}

func (n *Notifier) Publish(ctx context.Context, ev Event) {
	n.mu.RLock()
	for _, ch := range n.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	n.mu.RUnlock()

	if n.remote == nil || n.channel == "" {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if _, err := n.remote.Publish(ctx, n.channel, payload); err != nil {
		logger.Warn(ctx, "failed to publish event", "error", err, "event", ev.Type)
	}
}
