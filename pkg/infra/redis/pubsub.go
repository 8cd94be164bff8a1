package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PubSub Redis 发布/订阅客户端
type PubSub struct {
	client *redis.Client
}

// NewPubSub 创建 PubSub 实例
func NewPubSub(addr, password string, db int) (*PubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &PubSub{client: client}, nil
}

// NewFromClient 包装已有的 redis.Client
func NewFromClient(client *redis.Client) *PubSub {
	return &PubSub{client: client}
}

// Publish 向指定 channel 发布消息
func (p *PubSub) Publish(ctx context.Context, channel string, message []byte) error {
	if err := p.client.Publish(ctx, channel, message).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// Wait 订阅 channel 并等待一条消息，超时返回 context.DeadlineExceeded
func (p *PubSub) Wait(ctx context.Context, channel string, timeout time.Duration) ([]byte, error) {
	sub := p.client.Subscribe(ctx, channel)
	defer sub.Close()

	// 确认订阅生效后再开始计时，避免漏掉订阅前发布的消息
	if _, err := sub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("subscribe %s failed: %w", channel, err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case msg, ok := <-sub.Channel():
		if !ok {
			return nil, fmt.Errorf("subscription %s closed", channel)
		}
		return []byte(msg.Payload), nil
	case <-timeoutCtx.Done():
		return nil, timeoutCtx.Err()
	}
}

// Close 关闭 Redis 连接
func (p *PubSub) Close() error {
	return p.client.Close()
}
