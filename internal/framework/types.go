package framework

import "time"

// Message 从队列拉取到的一条任务
type Message struct {
	ID         string
	Queue      string
	Data       []byte    // 原始 Job 信封
	ReceivedAt time.Time // 拉取到的时间，零值表示未知
}

// QueueDelay 拉取到开始处理之间的等待时间
func (m *Message) QueueDelay(now time.Time) time.Duration {
	if m.ReceivedAt.IsZero() || now.Before(m.ReceivedAt) {
		return 0
	}
	return now.Sub(m.ReceivedAt)
}
