/*
 * @module service/dynamic_table/table_lock
 * @description 按表粒度的写锁抽象：结构变更和带唯一性校验的写入按tableID串行化
 * @architecture 工具层 - 同步原语
 * @rules 单实例部署使用进程内互斥锁；多实例部署通过Redis分布式锁实现同等语义
 * @refs service/distributed_lock/redis_lock.go, service/init.go
 */

package dynamic_table

import "sync"

// TableLocker 按表串行化执行的锁接口
type TableLocker interface {
	// WithLock 在tableID对应的锁保护下执行fn
	WithLock(tableID string, fn func() error) error
}

// MemoryTableLock 进程内按表互斥锁
type MemoryTableLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMemoryTableLock 创建进程内表锁
func NewMemoryTableLock() *MemoryTableLock {
	return &MemoryTableLock{locks: make(map[string]*sync.Mutex)}
}

func (l *MemoryTableLock) lockFor(tableID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[tableID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[tableID] = m
	}
	return m
}

// WithLock 在表级互斥锁保护下执行fn
func (l *MemoryTableLock) WithLock(tableID string, fn func() error) error {
	m := l.lockFor(tableID)
	m.Lock()
	defer m.Unlock()
	return fn()
}
