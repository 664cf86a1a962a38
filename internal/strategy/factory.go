package strategy

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"quantbt/internal/engine"
)

// Builder 按参数创建一个全新的策略实例。
// 每次回测必须拿到独立实例：策略内部有滚动窗口状态，复用会串台。
type Builder func(params map[string]any) (engine.Strategy, error)

// Factory 按名字创建策略实例，供引擎在 run 级别调用。
type Factory struct {
	mu       sync.RWMutex
	builders map[string]Builder
	registry *Registry
}

// NewFactory 创建内置策略工厂；registry 可为 nil（跳过档案校验）。
func NewFactory(registry *Registry) *Factory {
	f := &Factory{builders: make(map[string]Builder), registry: registry}
	f.Register("sma_cross", NewSMACross)
	f.Register("momentum", NewMomentum)
	return f
}

// Register 注册一个策略构造器，重名覆盖。
func (f *Factory) Register(name string, b Builder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[strings.ToLower(strings.TrimSpace(name))] = b
}

// Names 返回已注册策略名（排序后）。
func (f *Factory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.builders))
	for name := range f.builders {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// NewStrategy 创建策略实例。
// 有同名档案时先做 schema 校验并合并默认参数，再交给构造器。
func (f *Factory) NewStrategy(name string, params map[string]any) (engine.Strategy, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	f.mu.RLock()
	builder, ok := f.builders[key]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown strategy: %s", name)
	}
	if f.registry != nil {
		if profile, found := f.registry.Profile(key); found {
			if err := profile.Validate(params); err != nil {
				return nil, fmt.Errorf("策略参数校验失败 %s: %w", name, err)
			}
			params = profile.MergedParams(params)
		}
	}
	return builder(params)
}
