/*
 * @module service/distributed_lock/redis_lock
 * @description Redis分布式锁实现，多实例部署时对动态表写入按tableID串行化
 * @architecture 工具层 - 提供分布式锁能力
 * @stateFlow 获取锁 -> 执行写入 -> 释放锁/自动过期
 * @rules 使用Redis SET NX实现，锁持有者标识为主机名+进程ID，仅持有者可释放
 * @dependencies github.com/go-redis/redis/v8
 * @refs service/init.go, service/dynamic_table/table_lock.go
 */

package distributed_lock

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	lockKeyPrefix = "dynamic_table:lock:"
	// 单次写入的锁有效期，超过则视为持有者异常退出
	defaultLockTTL = 10 * time.Second
	// 获取锁的最长等待时间
	defaultAcquireTimeout = 5 * time.Second
	// 获取失败后的重试间隔
	acquireRetryInterval = 50 * time.Millisecond
)

// RedisTableLock Redis表级分布式锁
type RedisTableLock struct {
	client     *redis.Client
	instanceID string // 实例ID，用于标识锁的持有者
}

// NewRedisTableLock 创建Redis表级分布式锁
// 从环境变量读取Redis配置，连接失败时返回错误由调用方降级为进程内锁
func NewRedisTableLock() (*RedisTableLock, error) {
	host := getEnvWithDefault("REDIS_HOST", "localhost")
	port := getEnvWithDefault("REDIS_PORT", "6379")
	password := os.Getenv("REDIS_PASSWORD")
	db := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		fmt.Sscanf(dbStr, "%d", &db)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", host, port),
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis连接失败: %w", err)
	}

	hostname, _ := os.Hostname()
	instanceID := fmt.Sprintf("%s:%d", hostname, os.Getpid())

	slog.Info("Redis表锁初始化成功",
		"instance_id", instanceID,
		"redis_host", host,
		"redis_port", port)

	return &RedisTableLock{client: client, instanceID: instanceID}, nil
}

// TryLock 尝试获取表锁
// 使用SET NX命令，只有当key不存在时才会设置成功
func (r *RedisTableLock) TryLock(ctx context.Context, tableID string, ttl time.Duration) (bool, error) {
	result, err := r.client.SetNX(ctx, lockKeyPrefix+tableID, r.instanceID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("获取锁失败: %w", err)
	}
	return result, nil
}

// Unlock 释放表锁
// 使用Lua脚本确保只有锁的持有者才能释放锁
func (r *RedisTableLock) Unlock(ctx context.Context, tableID string) error {
	script := `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`

	result, err := r.client.Eval(ctx, script, []string{lockKeyPrefix + tableID}, r.instanceID).Result()
	if err != nil {
		return fmt.Errorf("释放锁失败: %w", err)
	}

	if result.(int64) != 1 {
		slog.Warn("表锁不存在或已被其他实例持有",
			"table_id", tableID,
			"instance", r.instanceID)
	}
	return nil
}

// WithLock 在表锁保护下执行fn，实现dynamic_table.TableLocker
// 锁被占用时自旋等待，超过等待时限返回错误而非带锁执行
func (r *RedisTableLock) WithLock(tableID string, fn func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultAcquireTimeout)
	defer cancel()

	for {
		locked, err := r.TryLock(ctx, tableID, defaultLockTTL)
		if err != nil {
			return err
		}
		if locked {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("获取表锁超时: %s", tableID)
		case <-time.After(acquireRetryInterval):
		}
	}

	defer func() {
		unlockCtx, unlockCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer unlockCancel()
		if err := r.Unlock(unlockCtx, tableID); err != nil {
			slog.Error("释放表锁失败", "table_id", tableID, "error", err)
		}
	}()

	return fn()
}

// Close 关闭Redis客户端
func (r *RedisTableLock) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
