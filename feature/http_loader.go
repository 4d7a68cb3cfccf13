package feature

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rushteam/carefolio/core"
)

// HTTPLoader HTTP 接口加载器
type HTTPLoader struct {
	client *http.Client
}

// NewHTTPLoader 创建 HTTP 接口加载器
//
// 用法：
//
//	loader := feature.NewHTTPLoader(5 * time.Second)
//	a, err := loader.Load(ctx, "http://artifacts.internal/workout/v1/artifacts.json")
func NewHTTPLoader(timeout time.Duration) *HTTPLoader {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPLoader{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewHTTPLoaderWithClient 使用自定义 HTTP 客户端创建加载器
func NewHTTPLoaderWithClient(client *http.Client) *HTTPLoader {
	return &HTTPLoader{client: client}
}

// Fetch 从 HTTP 接口读取原始字节
func (l *HTTPLoader) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleFeature, core.ErrorCodeUnavailable, "HTTP 请求失败", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeNotFound,
			fmt.Sprintf("HTTP 请求失败: %s not found", url))
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeUnavailable,
			fmt.Sprintf("HTTP 请求失败: status=%d, body=%s", resp.StatusCode, string(body)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}
	return data, nil
}

// Load 从 HTTP 接口加载训练产物元数据
func (l *HTTPLoader) Load(ctx context.Context, url string) (*Artifacts, error) {
	return loadArtifacts(ctx, l, url)
}
