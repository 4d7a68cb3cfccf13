package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rushteam/carefolio/api"
	"github.com/rushteam/carefolio/coach"
	"github.com/rushteam/carefolio/config"
	"github.com/rushteam/carefolio/core"
	"github.com/rushteam/carefolio/feature"
	"github.com/rushteam/carefolio/mealplan"
	"github.com/rushteam/carefolio/store"
	"github.com/rushteam/carefolio/workout"
)

const artifactFetchTimeout = 30 * time.Second

// openStore 按配置打开训练产物存储，backend 为 none 时返回 nil
func openStore(ctx context.Context, c config.StoreConfig) (core.Store, error) {
	switch c.Backend {
	case "memory":
		return store.NewMemoryStore(), nil
	case "redis":
		rs, err := store.NewRedisStore(ctx, c.Redis)
		if err != nil {
			return nil, err
		}
		return rs, nil
	default:
		return nil, nil
	}
}

// newLoader 创建按前缀分发的数据源加载器（文件 / HTTP / store://）
func newLoader(s core.Store, c config.StoreConfig) *feature.SourceLoader {
	l := feature.NewSourceLoader(feature.NewHTTPLoader(artifactFetchTimeout), nil)
	if s != nil {
		l.Store = storeLoader(s, c.KeyPrefix)
	}
	return l
}

// serviceStatus 单个服务的初始化结果
type serviceStatus struct {
	Name    string
	Enabled bool
	Err     error
}

// buildServices 逐个初始化服务。失败的服务置为 nil（接口返回 503），不影响其他服务。
func buildServices(ctx context.Context, c *config.Config, deps config.Deps) (api.Services, []serviceStatus) {
	var (
		svc    api.Services
		status []serviceStatus
	)
	logger := deps.Logger

	st := serviceStatus{Name: "workout", Enabled: c.Workout.Enabled}
	if st.Enabled {
		b, err := workout.LoadBundle(ctx, c.Workout, deps)
		if err != nil {
			st.Err = err
		} else {
			svc.Workout = workout.New(b, workout.WithLogger(logger.Named("workout")))
		}
	}
	status = append(status, st)

	st = serviceStatus{Name: "mealplan", Enabled: c.MealPlan.Enabled}
	if st.Enabled {
		b, err := mealplan.LoadBundle(ctx, c.MealPlan, deps)
		if err != nil {
			st.Err = err
		} else {
			svc.MealPlan = mealplan.New(b, mealplan.WithLogger(logger.Named("mealplan")))
		}
	}
	status = append(status, st)

	st = serviceStatus{Name: "coach", Enabled: c.Coach.Enabled}
	if st.Enabled {
		cc, err := coach.NewFromConfig(ctx, c.Coach, logger.Named("coach"))
		if err != nil {
			st.Err = err
		} else {
			svc.Coach = cc
		}
	}
	status = append(status, st)

	for _, s := range status {
		switch {
		case !s.Enabled:
			logger.Info("service disabled", zap.String("service", s.Name))
		case s.Err != nil:
			logger.Error("service not initialized", zap.String("service", s.Name), zap.Error(s.Err))
		default:
			logger.Info("service ready", zap.String("service", s.Name))
		}
	}
	return svc, status
}

// bootstrap 打开存储并初始化所有服务，返回的 close 函数释放存储
func bootstrap(ctx context.Context, c *config.Config, logger *zap.Logger) (api.Services, []serviceStatus, func(), error) {
	s, err := openStore(ctx, c.Store)
	if err != nil {
		return api.Services{}, nil, nil, fmt.Errorf("open store: %w", err)
	}
	if err := c.ValidateModelTypes(); err != nil {
		if s != nil {
			_ = s.Close()
		}
		return api.Services{}, nil, nil, err
	}
	closeFn := func() {
		if s != nil {
			_ = s.Close()
		}
	}
	deps := config.Deps{Loader: newLoader(s, c.Store), Logger: logger}
	svc, status := buildServices(ctx, c, deps)
	return svc, status, closeFn, nil
}
