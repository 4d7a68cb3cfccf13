package feature

import (
	"context"
	"fmt"
	"strings"

	"github.com/rushteam/carefolio/core"
)

// DefaultKeyPrefix 是训练产物在 Store 中的默认 key 前缀
const DefaultKeyPrefix = "carefolio:artifacts:"

// StoreLoader 是基于 core.Store 的加载器，采用适配器模式。
// 数据源形如 "store://workout/artifacts.json"，实际读取 key 为 prefix + "workout/artifacts.json"。
type StoreLoader struct {
	store     core.Store
	keyPrefix string
}

// NewStoreLoader 创建基于 Store 的加载器
func NewStoreLoader(store core.Store) *StoreLoader {
	return &StoreLoader{store: store, keyPrefix: DefaultKeyPrefix}
}

// WithKeyPrefix 设置 key 前缀
func (l *StoreLoader) WithKeyPrefix(prefix string) *StoreLoader {
	l.keyPrefix = prefix
	return l
}

// Key 把数据源标识转为 Store key
func (l *StoreLoader) Key(source string) string {
	return l.keyPrefix + strings.TrimPrefix(source, StoreScheme)
}

// Fetch 从 Store 读取原始字节
func (l *StoreLoader) Fetch(ctx context.Context, source string) ([]byte, error) {
	key := l.Key(source)
	data, err := l.store.Get(ctx, key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, core.WrapDomainError(core.ModuleFeature, core.ErrorCodeNotFound,
				fmt.Sprintf("%s: key %q not found", l.store.Name(), key), err)
		}
		return nil, fmt.Errorf("%s: get %q: %w", l.store.Name(), key, err)
	}
	return data, nil
}

// Put 写入原始字节（artifacts push 使用）
func (l *StoreLoader) Put(ctx context.Context, source string, data []byte) error {
	return l.store.Set(ctx, l.Key(source), data)
}

// PutAll 批量写入，key 为数据源标识
func (l *StoreLoader) PutAll(ctx context.Context, blobs map[string][]byte) error {
	kvs := make(map[string][]byte, len(blobs))
	for source, data := range blobs {
		kvs[l.Key(source)] = data
	}
	if err := l.store.BatchSet(ctx, kvs); err != nil {
		return fmt.Errorf("%s: batch set: %w", l.store.Name(), err)
	}
	return nil
}

// Stat 批量查询数据源的字节数，不存在的数据源不出现在结果中
func (l *StoreLoader) Stat(ctx context.Context, sources []string) (map[string]int, error) {
	keys := make([]string, len(sources))
	for i, source := range sources {
		keys[i] = l.Key(source)
	}
	found, err := l.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("%s: batch get: %w", l.store.Name(), err)
	}
	sizes := make(map[string]int, len(found))
	for i, source := range sources {
		if data, ok := found[keys[i]]; ok {
			sizes[source] = len(data)
		}
	}
	return sizes, nil
}

// Remove 删除数据源
func (l *StoreLoader) Remove(ctx context.Context, source string) error {
	if err := l.store.Delete(ctx, l.Key(source)); err != nil {
		return fmt.Errorf("%s: delete %q: %w", l.store.Name(), l.Key(source), err)
	}
	return nil
}

// Load 从 Store 加载训练产物元数据
func (l *StoreLoader) Load(ctx context.Context, source string) (*Artifacts, error) {
	return loadArtifacts(ctx, l, source)
}
