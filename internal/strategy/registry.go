package strategy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"quantbt/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Profile 描述一个策略参数档案。
type Profile struct {
	Name        string                 `mapstructure:"name" yaml:"name"`
	Strategy    string                 `mapstructure:"strategy" yaml:"strategy"`
	Description string                 `mapstructure:"description" yaml:"description"`
	Params      map[string]any         `mapstructure:"params" yaml:"params"`
	Schema      map[string]interface{} `mapstructure:"schema" yaml:"schema"`

	schemaCompiled *jsonschema.Schema
}

// FileConfig 映射 profiles 配置文件。
type FileConfig struct {
	Strategies map[string]Profile `mapstructure:"strategies" yaml:"strategies"`
}

// Snapshot 是当前档案集的只读快照。
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Profiles map[string]Profile
}

// Registry 管理策略档案，配置文件变更时自动重载。
type Registry struct {
	path string
	v    *viper.Viper

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewRegistry 读取档案文件并监听更新。
func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("strategy registry requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read strategy profiles failed: %w", err)
	}
	r := &Registry{path: path, v: v}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("strategy profiles reload failed: %v", err)
		}
	})
	v.WatchConfig()
	return r, nil
}

// Snapshot 返回当前档案集。
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// Profile 返回指定名字的档案。
func (r *Registry) Profile(name string) (Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.snapshot.Profiles[strings.TrimSpace(name)]
	return p, ok
}

// Validate 用档案自带 schema 校验一组参数覆盖。
func (r *Registry) Validate(name string, params map[string]any) (Profile, error) {
	p, ok := r.Profile(name)
	if !ok {
		return Profile{}, fmt.Errorf("unknown strategy profile: %s", name)
	}
	if err := p.Validate(params); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func (r *Registry) reload() error {
	cfg, err := readProfileFile(r.path)
	if err != nil {
		return err
	}
	profiles := make(map[string]Profile)
	for name, p := range cfg.Strategies {
		norm := normalizeProfile(name, p)
		profiles[norm.Name] = norm
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Profiles: profiles,
	}
	r.mu.Unlock()
	logger.Infof("策略档案已加载 %d 项: %s", len(profiles), filepath.Base(r.path))
	return nil
}

func normalizeProfile(name string, p Profile) Profile {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		p.Name = strings.TrimSpace(name)
	}
	p.Strategy = strings.TrimSpace(p.Strategy)
	if p.Strategy == "" {
		p.Strategy = p.Name
	}
	if len(p.Schema) > 0 {
		if compiled, err := compileSchema(p.Schema); err != nil {
			logger.Errorf("策略档案 schema 编译失败 name=%s: %v", p.Name, err)
		} else {
			p.schemaCompiled = compiled
		}
	}
	return p
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{
		Version:  src.Version,
		LoadedAt: src.LoadedAt,
		Profiles: make(map[string]Profile, len(src.Profiles)),
	}
	for name, p := range src.Profiles {
		dst.Profiles[name] = p
	}
	return dst
}

func compileSchema(data map[string]interface{}) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(string(raw))); err != nil {
		return nil, err
	}
	return compiler.Compile("schema.json")
}

func readProfileFile(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read strategy profiles failed: %w", err)
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse strategy profiles failed: %w", err)
	}
	return cfg, nil
}

// Validate 校验一组参数覆盖；档案未声明 schema 时直接放行。
func (p Profile) Validate(params map[string]any) error {
	if p.schemaCompiled == nil {
		return nil
	}
	return p.schemaCompiled.Validate(params)
}

// MergedParams 返回档案默认参数与覆盖项的合并结果。
func (p Profile) MergedParams(overrides map[string]any) map[string]any {
	out := make(map[string]any, len(p.Params)+len(overrides))
	for k, v := range p.Params {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}
