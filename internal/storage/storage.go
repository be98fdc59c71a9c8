// Package storage 聚合所有持久化相关依赖
package storage

import (
	"context"
	"fmt"

	"cv-parser-go/internal/config"
	"cv-parser-go/internal/logger"
)

// Storage 存储管理器
// MySQL是任务状态的唯一事实来源，初始化失败直接报错；
// MinIO/Redis/RabbitMQ均为可选能力，失败时降级继续
type Storage struct {
	// 关系型数据库
	MySQL *MySQL

	// 对象存储
	MinIO *MinIO

	// 键值存储
	Redis *Redis

	// 消息队列
	RabbitMQ *RabbitMQ
}

// NewStorage 创建存储管理器
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	storage := &Storage{}
	var err error

	storage.MySQL, err = NewMySQL(&cfg.MySQL)
	if err != nil {
		return nil, fmt.Errorf("初始化MySQL失败: %w", err)
	}
	logger.Info().Msg("MySQL客户端初始化成功")

	if cfg.MinIO.Endpoint != "" {
		storage.MinIO, err = NewMinIO(&cfg.MinIO)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化MinIO失败，原始文件归档不可用")
			storage.MinIO = nil
		} else {
			logger.Info().Msg("MinIO客户端初始化成功")
		}
	} else {
		logger.Info().Msg("MinIO未配置，跳过初始化")
	}

	if cfg.Redis.Address != "" {
		storage.Redis, err = NewRedisAdapter(&cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化Redis失败，上传去重不可用")
			storage.Redis = nil
		} else {
			logger.Info().Msg("Redis客户端初始化成功")
		}
	} else {
		logger.Info().Msg("Redis未配置，跳过初始化")
	}

	if cfg.RabbitMQ.URL != "" {
		storage.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化RabbitMQ失败，任务将在进程内处理")
			storage.RabbitMQ = nil
		}
	} else {
		logger.Info().Msg("RabbitMQ未配置，任务将在进程内处理")
	}

	return storage, nil
}

// Close 关闭全部连接
func (s *Storage) Close() {
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭MySQL连接失败")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭Redis连接失败")
		}
	}
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}
}
