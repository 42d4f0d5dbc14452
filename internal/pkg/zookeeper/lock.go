// internal/pkg/zookeeper/lock.go
package zookeeper

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
)

const lockRoot = "/pinhub/locks" // 所有分布式锁的根节点

// Conn 封装一个 ZooKeeper 连接。
type Conn struct {
	*zk.Conn
}

// Connect 建立到 ZooKeeper 集群的连接。
func Connect(addrs []string) (*Conn, error) {
	conn, _, err := zk.Connect(addrs, 10*time.Second)
	if err != nil {
		return nil, err
	}
	return &Conn{Conn: conn}, nil
}

// DistributedLock 是基于临时顺序节点实现的排他锁。
// 用于保证同一时刻只有一个清理进程在执行 sweep。
type DistributedLock struct {
	conn     *Conn
	path     string // 锁路径，例如 /pinhub/locks/expiry-sweep
	lockNode string // 成功获取锁后自己创建的节点
}

// NewDistributedLock 创建一个锁实例，并确保锁路径存在。
func NewDistributedLock(conn *Conn, resource string) (*DistributedLock, error) {
	if err := ensurePath(conn, lockRoot); err != nil {
		return nil, err
	}
	lockPath := lockRoot + "/" + resource
	if err := ensurePath(conn, lockPath); err != nil {
		return nil, err
	}
	return &DistributedLock{conn: conn, path: lockPath}, nil
}

func ensurePath(conn *Conn, path string) error {
	// 逐级创建，父节点可能已存在
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	current := ""
	for _, part := range parts {
		current += "/" + part
		_, err := conn.Create(current, []byte{}, 0, zk.WorldACL(zk.PermAll))
		if err != nil && err != zk.ErrNodeExists {
			return fmt.Errorf("failed to create lock path node %s: %w", current, err)
		}
	}
	return nil
}

// Lock 尝试获取锁，获取不到则阻塞等待，最久等待 wait。
func (l *DistributedLock) Lock(wait time.Duration) error {
	// 1. 创建临时顺序节点
	nodePath, err := l.conn.CreateProtectedEphemeralSequential(l.path+"/lock-", []byte{}, zk.WorldACL(zk.PermAll))
	if err != nil {
		return fmt.Errorf("failed to create sequential node: %w", err)
	}
	l.lockNode = nodePath

	deadline := time.Now().Add(wait)
	for {
		children, _, err := l.conn.Children(l.path)
		if err != nil {
			return fmt.Errorf("failed to list lock children: %w", err)
		}
		sort.Slice(children, func(i, j int) bool {
			return sequenceSuffix(children[i]) < sequenceSuffix(children[j])
		})

		mySeq := sequenceSuffix(nodePath)
		idx := -1
		for i, child := range children {
			if sequenceSuffix(child) == mySeq {
				idx = i
				break
			}
		}
		if idx <= 0 {
			// 序号最小（或没找到自己，按持有处理），获得锁
			return nil
		}

		// 2. 只监听排在自己前面的那个节点，避免惊群
		prev := l.path + "/" + children[idx-1]
		exists, _, eventChan, err := l.conn.ExistsW(prev)
		if err != nil {
			return fmt.Errorf("failed to watch previous node: %w", err)
		}
		if !exists {
			continue
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			_ = l.Unlock()
			return errors.New("timeout waiting for lock")
		}
		select {
		case event := <-eventChan:
			if event.Type == zk.EventNodeDeleted {
				continue
			}
		case <-time.After(remaining):
			_ = l.Unlock()
			return errors.New("timeout waiting for lock")
		}
	}
}

// Unlock 释放锁。
func (l *DistributedLock) Unlock() error {
	if l.lockNode == "" {
		return errors.New("no lock to unlock")
	}
	err := l.conn.Delete(l.lockNode, -1)
	if err != nil && err != zk.ErrNoNode {
		return fmt.Errorf("failed to delete lock node: %w", err)
	}
	l.lockNode = ""
	return nil
}

// sequenceSuffix 取出节点名末尾的序号部分（protected 节点名带 GUID 前缀）。
func sequenceSuffix(name string) string {
	if i := strings.LastIndex(name, "-"); i >= 0 {
		return name[i+1:]
	}
	return name
}
