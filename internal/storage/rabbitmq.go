package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"cv-parser-go/internal/config"
	"cv-parser-go/internal/logger"
)

// RabbitMQ 可选的异步任务分发组件
type RabbitMQ struct {
	conn         *amqp.Connection
	channelPool  sync.Pool
	queueMap     map[string]bool
	queueMutex   sync.Mutex
	publishMutex sync.Mutex
	cfg          *config.RabbitMQConfig
}

// NewRabbitMQ 创建RabbitMQ客户端
func NewRabbitMQ(cfg *config.RabbitMQConfig) (*RabbitMQ, error) {
	if cfg == nil {
		return nil, fmt.Errorf("RabbitMQ配置不能为空")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("RabbitMQ URL配置不能为空")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("无法连接到RabbitMQ服务器 (%s): %w", cfg.URL, err)
	}

	mq := &RabbitMQ{
		conn:     conn,
		queueMap: make(map[string]bool),
		cfg:      cfg,
	}

	mq.channelPool = sync.Pool{
		New: func() interface{} {
			ch, errPool := conn.Channel()
			if errPool != nil {
				logger.Error().Err(errPool).Msg("创建RabbitMQ通道失败")
				return nil
			}
			return ch
		},
	}

	testCh := mq.getChannel()
	if testCh == nil {
		conn.Close()
		return nil, fmt.Errorf("无法创建RabbitMQ通道")
	}
	mq.putChannel(testCh)

	logger.Info().Str("url", cfg.URL).Msg("成功连接到RabbitMQ服务器")
	return mq, nil
}

func (r *RabbitMQ) getChannel() *amqp.Channel {
	ch := r.channelPool.Get()
	if ch == nil {
		newCh, err := r.conn.Channel()
		if err != nil {
			logger.Error().Err(err).Msg("创建新RabbitMQ通道失败")
			return nil
		}
		return newCh
	}
	return ch.(*amqp.Channel)
}

func (r *RabbitMQ) putChannel(ch *amqp.Channel) {
	if ch != nil {
		r.channelPool.Put(ch)
	}
}

// Close 关闭连接
func (r *RabbitMQ) Close() error {
	return r.conn.Close()
}

// EnsureQueue 确保队列存在，重复调用只声明一次
func (r *RabbitMQ) EnsureQueue(queueName string, durable bool) error {
	if queueName == "" {
		return fmt.Errorf("队列名称不能为空")
	}

	r.queueMutex.Lock()
	defer r.queueMutex.Unlock()
	if r.queueMap[queueName] {
		return nil
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("无法获取RabbitMQ通道")
	}
	defer r.putChannel(ch)

	if _, err := ch.QueueDeclare(queueName, durable, false, false, false, nil); err != nil {
		return fmt.Errorf("声明队列 %s 失败: %w", queueName, err)
	}
	r.queueMap[queueName] = true
	return nil
}

// PublishJSON 向队列发布JSON消息（使用默认exchange直达队列）
func (r *RabbitMQ) PublishJSON(ctx context.Context, queueName string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("JSON序列化失败: %w", err)
	}

	r.publishMutex.Lock()
	defer r.publishMutex.Unlock()

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("无法获取RabbitMQ通道")
	}
	defer r.putChannel(ch)

	return ch.PublishWithContext(
		ctx,
		"",        // 默认exchange
		queueName, // 路由键即队列名
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    uuid.NewString(),
			Body:         jsonData,
			Timestamp:    time.Now(),
		},
	)
}

// subscribe 建立一条消费通道并返回投递流
func (r *RabbitMQ) subscribe(queueName string, prefetchCount int) (*amqp.Channel, <-chan amqp.Delivery, error) {
	ch := r.getChannel()
	if ch == nil {
		return nil, nil, fmt.Errorf("无法获取RabbitMQ通道")
	}

	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		r.putChannel(ch)
		return nil, nil, fmt.Errorf("设置QoS失败: %w", err)
	}

	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		r.putChannel(ch)
		return nil, nil, fmt.Errorf("注册消费者失败: %w", err)
	}
	return ch, deliveries, nil
}

// StartConsumer 启动消费者处理函数
// handler 返回 true 时确认消息，返回 false 时拒绝并重新入队；
// 投递通道断开后按 retry_interval 配置的间隔重新订阅
func (r *RabbitMQ) StartConsumer(queueName string, prefetchCount int, handler func([]byte) bool) (chan<- struct{}, error) {
	stopCh := make(chan struct{})
	retryInterval := config.GetDuration(r.cfg.RetryInterval, 5*time.Second)

	ch, deliveries, err := r.subscribe(queueName, prefetchCount)
	if err != nil {
		return nil, err
	}

	go func() {
		defer logger.Info().Str("queue", queueName).Msg("RabbitMQ消费者已停止")

		logger.Info().Str("queue", queueName).Int("prefetch", prefetchCount).Msg("RabbitMQ消费者已启动")

		for {
			select {
			case <-stopCh:
				r.putChannel(ch)
				return
			case delivery, ok := <-deliveries:
				if !ok {
					logger.Warn().Dur("retry_interval", retryInterval).Msg("RabbitMQ投递通道已断开，稍后重新订阅")
					select {
					case <-stopCh:
						return
					case <-time.After(retryInterval):
					}

					newCh, newDeliveries, serr := r.subscribe(queueName, prefetchCount)
					if serr != nil {
						logger.Error().Err(serr).Msg("重新订阅失败，等待下一轮重试")
						continue
					}
					ch, deliveries = newCh, newDeliveries
					continue
				}

				if handler(delivery.Body) {
					if err := delivery.Ack(false); err != nil {
						logger.Error().Err(err).Msg("确认消息失败")
					}
				} else {
					if err := delivery.Nack(false, true); err != nil {
						logger.Error().Err(err).Msg("拒绝消息失败")
					}
				}
			}
		}
	}()

	return stopCh, nil
}
