package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// 事件类型即 topic 路由键
const (
	ExerciseScored  = "exercise.scored"
	LessonCompleted = "lesson.completed"
	MilestoneGraded = "milestone.graded"
	QuestCompleted  = "quest.completed"
	LevelUnlocked   = "level.unlocked"
)

// Event 领域事件
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	UserID     uint        `json:"userId"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    interface{} `json:"payload"`
}

// New 生成带 ID 与时间戳的事件
func New(eventType string, userID uint, payload interface{}) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher 未启用消息队列时使用
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// AMQPPublisher 发布到 RabbitMQ topic exchange，连接断开后在下次发布时重连
type AMQPPublisher struct {
	url      string
	exchange string

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	p := &AMQPPublisher{url: url, exchange: exchange}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *AMQPPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		p.exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	p.conn = conn
	p.channel = ch
	return nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		if err := p.connect(); err != nil {
			return err
		}
	}

	return p.channel.PublishWithContext(
		ctx,
		p.exchange,
		event.Type, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID,
			Timestamp:    event.OccurredAt,
			Type:         event.Type,
			Body:         body,
		},
	)
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
