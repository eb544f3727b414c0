package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"shortlink-go/internal/config"
)

// ClickEvent 成功跳转后发布的点击事件
type ClickEvent struct {
	EventID   string    `json:"eventId"`
	ShortCode string    `json:"shortCode"`
	Timestamp time.Time `json:"timestamp"`
	UserAgent string    `json:"userAgent"`
	ClientIP  string    `json:"clientIp"`
}

// NewClickEvent 生成带唯一 ID 的点击事件
func NewClickEvent(shortCode, userAgent, clientIP string, at time.Time) ClickEvent {
	return ClickEvent{
		EventID:   uuid.NewString(),
		ShortCode: shortCode,
		Timestamp: at.UTC(),
		UserAgent: userAgent,
		ClientIP:  clientIP,
	}
}

type ClickPublisher interface {
	PublishClick(ctx context.Context, event ClickEvent) error
	Close() error
}

// AMQPClickPublisher 将点击事件写入持久化队列
type AMQPClickPublisher struct {
	conn  *amqp091.Connection
	ch    *amqp091.Channel
	queue string
	mu    sync.Mutex // amqp091.Channel 不支持并发发布
}

// NewAMQPClickPublisher 建立连接并声明队列
func NewAMQPClickPublisher(cfg config.RabbitMQConfig) (*AMQPClickPublisher, error) {
	conn, err := amqp091.Dial(cfg.URL)
	if err != nil {
		return nil, errors.Wrap(err, "dial rabbitmq")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open rabbitmq channel")
	}

	_, err = ch.QueueDeclare(
		cfg.ClickQueue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errors.Wrapf(err, "declare queue %q", cfg.ClickQueue)
	}

	zap.L().Info("RabbitMQ click publisher ready", zap.String("queue", cfg.ClickQueue))
	return &AMQPClickPublisher{conn: conn, ch: ch, queue: cfg.ClickQueue}, nil
}

func (p *AMQPClickPublisher) PublishClick(ctx context.Context, event ClickEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal click event")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx,
		"", p.queue, false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    event.EventID,
			Timestamp:    event.Timestamp,
			Body:         body,
		},
	)
	return errors.Wrap(err, "publish click event")
}

func (p *AMQPClickPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil && !errors.Is(err, amqp091.ErrClosed) {
		zap.L().Warn("Failed to close RabbitMQ channel", zap.Error(err))
	}
	return p.conn.Close()
}

// NopClickPublisher 未配置 RabbitMQ 时使用
type NopClickPublisher struct{}

func (NopClickPublisher) PublishClick(context.Context, ClickEvent) error { return nil }
func (NopClickPublisher) Close() error                                   { return nil }
