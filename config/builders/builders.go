// Package builders 注册内置预测器类型：forest、linear、rpc。
// 入口处 import _ "github.com/rushteam/carefolio/config/builders" 即可。
package builders

import (
	"context"
	"fmt"
	"time"

	"github.com/rushteam/carefolio/config"
	"github.com/rushteam/carefolio/core"
	"github.com/rushteam/carefolio/model"
	"github.com/rushteam/carefolio/pkg/conv"
)

func init() {
	config.Register("forest", BuildForest)
	config.Register("linear", BuildLinear)
	config.Register("rpc", BuildRPC)
}

// BuildForest 从 params.path 加载导出的树集成模型
func BuildForest(ctx context.Context, name string, params map[string]any, deps config.Deps) (core.Predictor, error) {
	data, err := fetch(ctx, params, deps)
	if err != nil {
		return nil, err
	}
	return model.LoadTreeEnsemble(name, data)
}

// BuildLinear 从 params.path 加载导出的线性 / 逻辑回归模型
func BuildLinear(ctx context.Context, name string, params map[string]any, deps config.Deps) (core.Predictor, error) {
	data, err := fetch(ctx, params, deps)
	if err != nil {
		return nil, err
	}
	return model.LoadLinearModel(name, data)
}

// BuildRPC 构建远程模型。
// params: endpoint（必填）、timeout、interval、open_timeout（秒数或 "5s" 形式）、
// max_requests、failure_threshold。
func BuildRPC(ctx context.Context, name string, params map[string]any, deps config.Deps) (core.Predictor, error) {
	endpoint := conv.ConfigGet(params, "endpoint", "")
	if endpoint == "" {
		return nil, core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput, "rpc model: endpoint is required")
	}
	cfg := model.DefaultRPCConfig(endpoint)
	var err error
	if cfg.Timeout, err = duration(params, "timeout", cfg.Timeout); err != nil {
		return nil, err
	}
	if cfg.Interval, err = duration(params, "interval", cfg.Interval); err != nil {
		return nil, err
	}
	if cfg.OpenTimeout, err = duration(params, "open_timeout", cfg.OpenTimeout); err != nil {
		return nil, err
	}
	if n := conv.ConfigGetInt64(params, "max_requests", 0); n > 0 {
		cfg.MaxRequests = uint32(n)
	}
	if n := conv.ConfigGetInt64(params, "failure_threshold", 0); n > 0 {
		cfg.FailureThreshold = uint32(n)
	}
	return model.NewRPCModel(name, cfg, model.WithRPCLogger(deps.Logger)), nil
}

func fetch(ctx context.Context, params map[string]any, deps config.Deps) ([]byte, error) {
	path := conv.ConfigGet(params, "path", "")
	if path == "" {
		return nil, core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput, "model params: path is required")
	}
	if deps.Loader == nil {
		return nil, core.NewDomainError(core.ModuleConfig, core.ErrorCodeNotInitialized, "model params: no loader configured")
	}
	return deps.Loader.Fetch(ctx, path)
}

// duration 兼容秒数（int / float64）与 time.ParseDuration 字符串
func duration(params map[string]any, key string, def time.Duration) (time.Duration, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return def, nil
	}
	if s, ok := v.(string); ok {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, core.WrapDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput,
				fmt.Sprintf("model params: invalid %s", key), err)
		}
		return d, nil
	}
	if sec, ok := conv.ToFloat64(v); ok && sec > 0 {
		return time.Duration(sec * float64(time.Second)), nil
	}
	return def, nil
}
