package feature

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rushteam/carefolio/core"
)

// BlobLoader 按数据源标识读取原始字节（本地文件、HTTP 接口、core.Store 等）
type BlobLoader interface {
	Fetch(ctx context.Context, source string) ([]byte, error)
}

// ArtifactsLoader 训练产物元数据加载器接口
type ArtifactsLoader interface {
	// Load 加载训练产物元数据
	// source 是数据源标识（文件路径、URL、store://key）
	Load(ctx context.Context, source string) (*Artifacts, error)
}

// StoreScheme 是 core.Store 数据源前缀
const StoreScheme = "store://"

// FileLoader 本地文件加载器
type FileLoader struct{}

// NewFileLoader 创建本地文件加载器
func NewFileLoader() *FileLoader {
	return &FileLoader{}
}

// Fetch 读取本地文件
func (l *FileLoader) Fetch(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.WrapDomainError(core.ModuleFeature, core.ErrorCodeNotFound, "读取文件失败: "+path, err)
		}
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}
	return data, nil
}

// Load 从本地文件加载训练产物元数据
func (l *FileLoader) Load(ctx context.Context, path string) (*Artifacts, error) {
	return loadArtifacts(ctx, l, path)
}

// SourceLoader 按数据源前缀分发：http(s):// 走 HTTP，store:// 走 core.Store，其余视为本地文件。
type SourceLoader struct {
	File  BlobLoader
	HTTP  BlobLoader
	Store BlobLoader
}

// NewSourceLoader 创建分发加载器。store 为 nil 时 store:// 数据源不可用。
func NewSourceLoader(httpLoader *HTTPLoader, store core.Store) *SourceLoader {
	l := &SourceLoader{File: NewFileLoader()}
	if httpLoader != nil {
		l.HTTP = httpLoader
	}
	if store != nil {
		l.Store = NewStoreLoader(store)
	}
	return l
}

// Fetch 实现 BlobLoader
func (l *SourceLoader) Fetch(ctx context.Context, source string) ([]byte, error) {
	var b BlobLoader
	switch {
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		b = l.HTTP
	case strings.HasPrefix(source, StoreScheme):
		b = l.Store
	default:
		b = l.File
	}
	if b == nil {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeNotSupported,
			fmt.Sprintf("feature: no loader configured for source %q", source))
	}
	return b.Fetch(ctx, source)
}

// Load 实现 ArtifactsLoader
func (l *SourceLoader) Load(ctx context.Context, source string) (*Artifacts, error) {
	return loadArtifacts(ctx, l, source)
}

func loadArtifacts(ctx context.Context, b BlobLoader, source string) (*Artifacts, error) {
	data, err := b.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	a, err := ParseArtifacts(data)
	if err != nil {
		return nil, fmt.Errorf("解析训练产物失败 %s: %w", source, err)
	}
	return a, nil
}
