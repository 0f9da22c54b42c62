package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"pkt.systems/pslog"

	"github.com/tianxiaolong/pytest-auto-api2/packages/cache"
	"github.com/tianxiaolong/pytest-auto-api2/packages/core/config"
	"github.com/tianxiaolong/pytest-auto-api2/packages/core/model"
	"github.com/tianxiaolong/pytest-auto-api2/packages/resolver"
)

// Kind selects the active source adapter.
type Kind string

const (
	KindYAML  Kind = "yaml"
	KindExcel Kind = "excel"
)

// ErrUnknownDriver is returned for a driver kind outside the supported set.
var ErrUnknownDriver = fmt.Errorf("unknown data driver kind, supported: %s, %s", KindYAML, KindExcel)

// NotFoundError reports a module or file the active source does not have.
type NotFoundError struct {
	Module string
	File   string
}

func (e *NotFoundError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("no case file %q in module %q", e.File, e.Module)
	}
	return fmt.Sprintf("no case files found for module %q", e.Module)
}

// Driver is the data driver facade: one uniform entry point over both
// physical formats. It owns the loaded datasets for the lifetime of a test
// session and invalidates them when the active adapter or the underlying
// files change.
type Driver struct {
	mu       sync.Mutex
	cfg      *config.Config
	kind     Kind
	adapters map[Kind]Adapter
	mat      *Materializer
	res      *resolver.Resolver
	log      pslog.Base

	datasets map[string][]model.TestCase // key: module "/" file
	seen     map[string]string           // case id -> source file
	watcher  *fsnotify.Watcher
}

type Option func(*Driver)

func WithLogger(log pslog.Base) Option {
	return func(d *Driver) {
		d.log = log
	}
}

// New builds a facade over the configured data directory and cache bus.
// The resolver's function registry is extended with host() and app_host()
// bound to the configuration.
func New(cfg *config.Config, bus cache.Bus, opts ...Option) (*Driver, error) {
	kind := Kind(cfg.DataDriverType)
	if kind != KindYAML && kind != KindExcel {
		return nil, ErrUnknownDriver
	}

	res := resolver.New(bus)
	res.Funcs().Register("host", func([]string) any { return cfg.Host })
	res.Funcs().Register("app_host", func([]string) any { return cfg.AppHost })

	d := &Driver{
		cfg:  cfg,
		kind: kind,
		adapters: map[Kind]Adapter{
			KindYAML:  &YAMLAdapter{},
			KindExcel: &ExcelAdapter{},
		},
		mat:      NewMaterializer(res, cfg.MySQLDB.Switch),
		res:      res,
		log:      pslog.NewWithOptions(os.Stderr, pslog.Options{MinLevel: pslog.InfoLevel}),
		datasets: make(map[string][]model.TestCase),
		seen:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Resolver exposes the placeholder resolver shared with the rest of the
// session.
func (d *Driver) Resolver() *resolver.Resolver {
	return d.res
}

// dataRoot is the active source's directory for the configured project.
func (d *Driver) dataRoot() string {
	if d.kind == KindExcel {
		return filepath.Join(d.cfg.ExcelDataPath, d.cfg.ProjectName)
	}
	return filepath.Join(d.cfg.YAMLDataPath, d.cfg.ProjectName)
}

// GetTestData loads the case records of one module. With no file name the
// first matching file is used; when several candidates exist that pick is
// nondeterministic, so it is logged and should be avoided in suites.
func (d *Driver) GetTestData(module string, file ...string) ([]model.TestCase, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	name := ""
	if len(file) > 0 {
		name = file[0]
	}

	path, err := d.selectFile(module, name)
	if err != nil {
		return nil, err
	}

	key := module + "/" + filepath.Base(path)
	if cases, ok := d.datasets[key]; ok {
		return cases, nil
	}

	adapter := d.adapters[d.kind]
	ds, err := adapter.Load(path)
	if err != nil {
		return nil, err
	}
	cases, err := d.mat.Materialize(ds, d.seen)
	if err != nil {
		return nil, err
	}

	d.log.Info("loaded case data", "module", module, "file", filepath.Base(path), "cases", len(cases))
	d.datasets[key] = cases
	return cases, nil
}

func (d *Driver) selectFile(module, name string) (string, error) {
	moduleDir := filepath.Join(d.dataRoot(), module)
	if _, err := os.Stat(moduleDir); err != nil {
		return "", &NotFoundError{Module: module}
	}

	adapter := d.adapters[d.kind]
	if name != "" {
		if !hasKnownExtension(name, adapter.Extensions()) {
			name += adapter.Extensions()[0]
		}
		path := filepath.Join(moduleDir, name)
		if _, err := os.Stat(path); err != nil {
			return "", &NotFoundError{Module: module, File: name}
		}
		return path, nil
	}

	candidates, err := listByExtension(moduleDir, adapter.Extensions())
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", &NotFoundError{Module: module}
	}
	if len(candidates) > 1 {
		// First-found selection with several candidates has no defined
		// ordering; the original behavior is kept, not fixed.
		d.log.Warn("multiple case files for module, auto-selection is nondeterministic",
			"module", module, "candidates", len(candidates))
	}
	return filepath.Join(moduleDir, candidates[0]), nil
}

// SwitchDriver atomically repoints subsequent calls at the other adapter.
// Any loaded dataset is invalidated so stale cross-source results are
// never returned.
func (d *Driver) SwitchDriver(kind Kind) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.adapters[kind]; !ok {
		return ErrUnknownDriver
	}
	if kind != d.kind {
		d.kind = kind
		d.invalidate()
		d.log.Info("data driver switched", "kind", string(kind))
	}
	return nil
}

func (d *Driver) invalidate() {
	d.datasets = make(map[string][]model.TestCase)
	d.seen = make(map[string]string)
}

// ListModules returns the module directories of the active source, sorted.
func (d *Driver) ListModules() ([]string, error) {
	entries, err := os.ReadDir(d.dataRoot())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read data dir: %w", err)
	}
	var modules []string
	for _, entry := range entries {
		if entry.IsDir() {
			modules = append(modules, entry.Name())
		}
	}
	sort.Strings(modules)
	return modules, nil
}

// ListModuleFiles returns the case files of one module for the active
// source, sorted.
func (d *Driver) ListModuleFiles(module string) ([]string, error) {
	moduleDir := filepath.Join(d.dataRoot(), module)
	if _, err := os.Stat(moduleDir); err != nil {
		return nil, nil
	}
	return listByExtension(moduleDir, d.adapters[d.kind].Extensions())
}

// ResolveCase produces the per-invocation copy of a case with its cache
// references substituted. The stored record stays untouched.
func (d *Driver) ResolveCase(tc model.TestCase) (model.TestCase, error) {
	data, err := json.Marshal(tc)
	if err != nil {
		return tc, fmt.Errorf("serialize case %q: %w", tc.CaseID, err)
	}
	text, err := d.res.ResolveCache(string(data))
	if err != nil {
		return tc, fmt.Errorf("resolve case %q: %w", tc.CaseID, err)
	}
	var out model.TestCase
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return tc, fmt.Errorf("reparse resolved case %q: %w", tc.CaseID, err)
	}
	return out, nil
}

// Watch invalidates loaded datasets whenever a file under the active data
// root changes, until ctx is done.
func (d *Driver) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	root := d.dataRoot()
	if err := watcher.Add(root); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", root, err)
	}
	entries, err := os.ReadDir(root)
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				_ = watcher.Add(filepath.Join(root, entry.Name()))
			}
		}
	}
	d.watcher = watcher

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					d.mu.Lock()
					d.invalidate()
					d.mu.Unlock()
					d.log.Info("case data changed, datasets invalidated", "file", event.Name)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				d.log.Warn("watch error", "err", err)
			}
		}
	}()
	return nil
}

func hasKnownExtension(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func listByExtension(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read module dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if hasKnownExtension(entry.Name(), exts) {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
