// internal/pkg/redis/client.go
package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Client 封装了 go-redis 客户端，统一连接参数。
type Client struct {
	client *goredis.Client
}

// NewClient 创建并 ping 一个 redis 连接。
func NewClient(addr string) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Client{client: rdb}, nil
}

// GetClient 暴露底层客户端给需要 pipeline 等高级能力的调用方。
func (c *Client) GetClient() *goredis.Client {
	return c.client
}

// Get 读取一个 key，key 不存在时返回 redis.Nil。
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

// Close 关闭连接。
func (c *Client) Close() error {
	return c.client.Close()
}

// Nil 透出 go-redis 的未命中哨兵错误，避免调用方直接依赖底层包。
var Nil = goredis.Nil
