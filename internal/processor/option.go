package processor

import (
	"time"
)

// Option JobProcessor的配置选项
type Option func(*JobProcessor)

// WithFileStore 启用原始文件归档
func WithFileStore(store FileStore) Option {
	return func(p *JobProcessor) {
		p.files = store
	}
}

// WithQueue 启用异步队列分发
func WithQueue(queue QueueDispatcher, queueName string) Option {
	return func(p *JobProcessor) {
		p.queue = queue
		p.queueName = queueName
	}
}

// WithClock 注入时间源，测试用
func WithClock(now func() time.Time) Option {
	return func(p *JobProcessor) {
		p.now = now
	}
}

// WithMaxInputChars 覆盖传给LLM的文本截断长度
func WithMaxInputChars(n int) Option {
	return func(p *JobProcessor) {
		if n > 0 {
			p.maxInputChars = n
		}
	}
}

// WithParserVersion 覆盖记录到解析结果的流水线版本号
func WithParserVersion(version string) Option {
	return func(p *JobProcessor) {
		p.parserVersion = version
	}
}
