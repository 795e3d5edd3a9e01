//go:build !no_automation

package automation

import (
	lua "github.com/yuin/gopher-lua"

	"keypad-gateway/internal/ace"
	"keypad-gateway/internal/events"
)

const maxHandlersPerScript = 100

// registerKeypadModule registers the `keypad` global table in a Lua state.
//
//	keypad.on(event_type, callback)   subscribe to keypad events
//	keypad.set_mode(action)           switch the panel mode
//	keypad.panel_status()             current panel action string
//	keypad.log(msg)                   log through the gateway logger
func registerKeypadModule(L *lua.LState, vm *scriptVM, e *Engine) {
	mod := L.NewTable()

	mod.RawSetString("on", L.NewFunction(func(L *lua.LState) int {
		return keypadOn(L, vm)
	}))
	mod.RawSetString("set_mode", L.NewFunction(func(L *lua.LState) int {
		return keypadSetMode(L, e)
	}))
	mod.RawSetString("panel_status", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(e.panel.Action()))
		return 1
	}))
	mod.RawSetString("log", L.NewFunction(func(L *lua.LState) int {
		e.logger.Info("script log", "msg", L.CheckString(1))
		return 0
	}))

	L.SetGlobal("keypad", mod)
}

// keypad.on(type, callback)
func keypadOn(L *lua.LState, vm *scriptVM) int {
	eventType := L.CheckString(1)
	fn := L.CheckFunction(2)

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if len(vm.handlers) >= maxHandlersPerScript {
		L.RaiseError("too many handlers (max %d)", maxHandlersPerScript)
		return 0
	}
	vm.handlers = append(vm.handlers, luaEventHandler{eventType: eventType, fn: fn})
	return 0
}

// keypad.set_mode(action)
func keypadSetMode(L *lua.LState, e *Engine) int {
	raw := L.CheckString(1)
	action, ok := ace.ParseAction(raw)
	if !ok {
		e.logger.Warn("script requested unknown panel action", "action", raw)
		return 0
	}
	e.panel.SetAction(action)
	e.bus.Emit(events.Event{
		Type: events.EventPanelStatus,
		Data: map[string]any{"action": string(action), "source": "automation"},
	})
	return 0
}
