//go:build !no_automation

package automation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"keypad-gateway/internal/ace"
	"keypad-gateway/internal/events"
)

// luaEventHandler is a registered Lua callback for one event type.
type luaEventHandler struct {
	eventType string
	fn        *lua.LFunction
}

// scriptVM is a running Lua VM for a single script. All Lua access goes
// through the commands channel; the VM goroutine is the only caller of
// the LState.
type scriptVM struct {
	state    *lua.LState
	commands chan func(*lua.LState)
	handlers []luaEventHandler
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
}

// Engine runs Lua automation scripts against keypad events. Scripts
// register handlers with keypad.on and react by switching panel modes.
type Engine struct {
	panel  *ace.Panel
	bus    *events.Bus
	dir    string
	logger *slog.Logger

	mu    sync.Mutex
	vms   map[string]*scriptVM // script name -> running VM
	unsub func()
}

// NewEngine creates an automation engine loading scripts from dir.
func NewEngine(panel *ace.Panel, bus *events.Bus, dir string, logger *slog.Logger) *Engine {
	return &Engine{
		panel:  panel,
		bus:    bus,
		dir:    dir,
		logger: logger.With("component", "automation"),
		vms:    make(map[string]*scriptVM),
	}
}

// Start subscribes to the event bus and loads all scripts in the
// configured directory. Missing directory is not an error.
func (e *Engine) Start() {
	e.unsub = e.bus.OnAll(e.dispatchEvent)

	names, err := e.listScripts()
	if err != nil {
		e.logger.Error("load scripts", "err", err)
		return
	}
	for _, name := range names {
		if err := e.startScript(name); err != nil {
			e.logger.Error("start script", "name", name, "err", err)
		}
	}
	e.logger.Info("automation engine started", "scripts", len(e.vms))
}

// Stop cancels all VMs and unsubscribes from the event bus.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for name, vm := range e.vms {
		vm.cancel()
		delete(e.vms, name)
	}
	if e.unsub != nil {
		e.unsub()
	}
	e.logger.Info("automation engine stopped")
}

// LoadScript starts (or restarts) a script from Lua source. Used by
// tests and the reload path.
func (e *Engine) LoadScript(name, code string) error {
	e.stopScript(name)
	return e.loadVM(name, code)
}

func (e *Engine) listScripts() ([]string, error) {
	if e.dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(e.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read scripts dir: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".lua") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (e *Engine) startScript(name string) error {
	code, err := os.ReadFile(filepath.Join(e.dir, name))
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	return e.loadVM(name, string(code))
}

func (e *Engine) stopScript(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if vm, ok := e.vms[name]; ok {
		vm.cancel()
		delete(e.vms, name)
		e.logger.Info("script stopped", "name", name)
	}
}

func (e *Engine) loadVM(name, code string) error {
	ctx, cancel := context.WithCancel(context.Background())

	L := lua.NewState(lua.Options{SkipOpenLibs: false})
	sandbox(L)

	vm := &scriptVM{
		state:    L,
		commands: make(chan func(*lua.LState), 64),
		ctx:      ctx,
		cancel:   cancel,
	}
	registerKeypadModule(L, vm, e)

	// Top-level code runs once to register handlers.
	if err := L.DoString(code); err != nil {
		cancel()
		L.Close()
		return fmt.Errorf("execute script %s: %w", name, err)
	}

	e.mu.Lock()
	e.vms[name] = vm
	e.mu.Unlock()

	go func() {
		defer L.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case fn := <-vm.commands:
				fn(L)
			}
		}
	}()

	e.logger.Info("script started", "name", name)
	return nil
}

func sandbox(L *lua.LState) {
	for _, g := range []string{"os", "io", "loadfile", "dofile", "require", "load", "debug", "package"} {
		L.SetGlobal(g, lua.LNil)
	}
}

// dispatchEvent routes a bus event to all matching Lua handlers.
func (e *Engine) dispatchEvent(event events.Event) {
	e.mu.Lock()
	vms := make([]*scriptVM, 0, len(e.vms))
	for _, vm := range e.vms {
		vms = append(vms, vm)
	}
	e.mu.Unlock()

	for _, vm := range vms {
		vm.mu.Lock()
		handlers := make([]luaEventHandler, len(vm.handlers))
		copy(handlers, vm.handlers)
		vm.mu.Unlock()

		for _, h := range handlers {
			if h.eventType != event.Type {
				continue
			}
			fn := h.fn
			select {
			case <-vm.ctx.Done():
			case vm.commands <- func(L *lua.LState) {
				e.callHandler(L, fn, event)
			}:
			default:
				e.logger.Warn("script command channel full, dropping event", "event", event.Type)
			}
		}
	}
}

func (e *Engine) callHandler(L *lua.LState, fn *lua.LFunction, event events.Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("lua handler panic", "err", r)
		}
	}()

	eventTable := L.NewTable()
	eventTable.RawSetString("type", lua.LString(event.Type))
	for k, v := range event.Data {
		eventTable.RawSetString(k, goToLua(L, v))
	}

	if err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, eventTable); err != nil {
		e.logger.Error("lua handler error", "err", err)
	}
}

func goToLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint8:
		return lua.LNumber(val)
	case uint16:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case map[string]any:
		t := L.NewTable()
		for k, vv := range val {
			t.RawSetString(k, goToLua(L, vv))
		}
		return t
	default:
		return lua.LString(fmt.Sprintf("%v", val))
	}
}
