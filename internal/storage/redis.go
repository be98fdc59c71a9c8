package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"cv-parser-go/internal/config"
	"cv-parser-go/internal/constants"
	"cv-parser-go/internal/logger"
	"cv-parser-go/internal/tracing"
)

var redisTracer = otel.Tracer("cv-parser-go/storage/redis")

// Redis 可选的去重与计数组件
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter 创建Redis客户端连接
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis配置不能为空")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis地址不能为空")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
	}

	client := redis.NewClient(opt)

	// 添加OpenTelemetry钩子，记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("为Redis注册OpenTelemetry钩子失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("连接Redis失败 (%s): %w", cfg.Address, err)
	}

	return &Redis{Client: client, config: cfg}, nil
}

// Close 关闭Redis连接
func (r *Redis) Close() error {
	if r.Client == nil {
		return nil
	}
	return r.Client.Close()
}

// Ping 检查连接
func (r *Redis) Ping(ctx context.Context) error {
	_, err := r.Client.Ping(ctx).Result()
	return err
}

// hashExpireDuration 返回配置的去重记录过期时间
func (r *Redis) hashExpireDuration() time.Duration {
	days := r.config.HashRecordExpireDays
	if days <= 0 {
		days = 365
	}
	return time.Duration(days) * 24 * time.Hour
}

// CheckAndAddFileHash 原子地检查并登记文件内容哈希，返回是否已存在
// 用于对重复上传的文件提前给出已有任务的提示
func (r *Redis) CheckAndAddFileHash(ctx context.Context, hashHex string) (exists bool, err error) {
	ctx, span := redisTracer.Start(ctx, "Redis.CheckAndAddFileHash",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		semconv.DBSystemRedis,
		attribute.String("net.peer.name", r.config.Address),
		attribute.String("db.operation", "EVAL"),
		attribute.String("db.redis.key", tracing.SafeRedisKey(constants.KeyFileHashSet)),
	)

	if r.Client == nil {
		err = fmt.Errorf("redis客户端未初始化")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	// Lua脚本保证检查与登记的原子性
	script := `
		local exists = redis.call('SISMEMBER', KEYS[1], ARGV[1])
		redis.call('SADD', KEYS[1], ARGV[1])
		redis.call('EXPIRE', KEYS[1], ARGV[2])
		return exists
	`
	expiry := r.hashExpireDuration().Seconds()

	res, err := r.Client.Eval(ctx, script, []string{constants.KeyFileHashSet}, hashHex, expiry).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("执行原子检查和添加操作失败: %w", err)
	}

	existsVal, ok := res.(int64)
	if !ok {
		err := fmt.Errorf("意外的Redis返回类型: %T", res)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	exists = existsVal == 1
	span.SetAttributes(attribute.Bool("already_exists", exists))
	span.SetStatus(codes.Ok, "")
	return exists, nil
}

// RemoveFileHash 从去重集合中移除哈希，任务失败后允许重新提交
func (r *Redis) RemoveFileHash(ctx context.Context, hashHex string) error {
	return r.Client.SRem(ctx, constants.KeyFileHashSet, hashHex).Err()
}

// IncrCacheHit 累加全局缓存命中计数
func (r *Redis) IncrCacheHit(ctx context.Context) error {
	return r.Client.Incr(ctx, constants.KeyCacheHits).Err()
}

// IncrCacheMiss 累加全局缓存未命中计数
func (r *Redis) IncrCacheMiss(ctx context.Context) error {
	return r.Client.Incr(ctx, constants.KeyCacheMisses).Err()
}

// OnCacheHit 缓存命中上报，失败只记日志
func (r *Redis) OnCacheHit(ctx context.Context) {
	if err := r.IncrCacheHit(ctx); err != nil {
		logger.Debug().Err(err).Msg("上报缓存命中计数失败")
	}
}

// OnCacheMiss 缓存未命中上报，失败只记日志
func (r *Redis) OnCacheMiss(ctx context.Context) {
	if err := r.IncrCacheMiss(ctx); err != nil {
		logger.Debug().Err(err).Msg("上报缓存未命中计数失败")
	}
}

// CacheCounters 读取全局缓存命中计数
func (r *Redis) CacheCounters(ctx context.Context) (hits, misses int64, err error) {
	hits, err = r.Client.Get(ctx, constants.KeyCacheHits).Int64()
	if err != nil && err != redis.Nil {
		return 0, 0, err
	}
	misses, err = r.Client.Get(ctx, constants.KeyCacheMisses).Int64()
	if err != nil && err != redis.Nil {
		return hits, 0, err
	}
	return hits, misses, nil
}
