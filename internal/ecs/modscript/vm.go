// Package modscript embeds gopher-lua as the runtime's mod scripting
// layer: a sandboxed Lua VM per mod, with a small "ecs" table exposing
// entity/component/message operations backed by a codegen.Registry and a
// bound ecs.World.
//
// Grounded on the teacher's internal/core/ecs/lua (LuaBridge/LuaVM) and
// internal/core/ecs/mod (ModECSAPI/ModECSAPIFactory) packages, which split
// VM lifecycle and API surface the same way; this package collapses both
// into one cohesive unit scoped to what the codegen registry can already
// express; the teacher's reflection-tag-based Go<->Lua struct conversion
// (lua_bridge.go convertStructToLua/convertLuaToGo) is adapted in
// convert.go to walk FieldSchema instead of json tags.
package modscript

import (
	"context"
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/totodo713/ecsforge/internal/ecs"
	"github.com/totodo713/ecsforge/internal/ecs/codegen"
)

// Sandbox restricts which stdlib surfaces a mod script can reach.
// Grounded on the teacher's lua.Sandbox/applySandbox.
type Sandbox struct {
	FileSystemRestricted bool
	OSCommandsBlocked    bool
}

// DefaultSandbox blocks filesystem and OS access, the configuration every
// mod VM should run under outside of tests.
var DefaultSandbox = Sandbox{FileSystemRestricted: true, OSCommandsBlocked: true}

// VM is one mod's Lua state, bound to a world and a codegen registry.
type VM struct {
	state    *lua.LState
	world    *ecs.World
	registry *codegen.Registry
	modID    string
}

// NewVM creates a sandboxed Lua VM for modID, bound to world and registry,
// and installs the "ecs" API table.
func NewVM(modID string, world *ecs.World, registry *codegen.Registry, sandbox Sandbox) (*VM, error) {
	state := lua.NewState()
	if state == nil {
		return nil, errors.New("modscript: failed to create Lua state")
	}
	applySandbox(state, sandbox)

	vm := &VM{state: state, world: world, registry: registry, modID: modID}
	vm.installAPI()
	return vm, nil
}

// Close releases the underlying Lua state. A VM must not be used after
// Close.
func (vm *VM) Close() {
	vm.state.Close()
}

// RunString executes script in vm, aborting early if ctx is cancelled
// before the call returns (gopher-lua checks context cancellation between
// VM instructions once SetContext has been called).
func (vm *VM) RunString(ctx context.Context, script string) error {
	vm.state.SetContext(ctx)
	if err := vm.state.DoString(script); err != nil {
		return fmt.Errorf("modscript: mod %q script error: %w", vm.modID, err)
	}
	return nil
}

func applySandbox(state *lua.LState, sandbox Sandbox) {
	if sandbox.FileSystemRestricted {
		state.SetGlobal("io", lua.LNil)
		state.SetGlobal("dofile", lua.LNil)
		state.SetGlobal("loadfile", lua.LNil)
	}
	if sandbox.OSCommandsBlocked {
		state.SetGlobal("os", lua.LNil)
	}
	state.SetGlobal("debug", lua.LNil)
	state.SetGlobal("package", lua.LNil)
	state.SetGlobal("require", lua.LNil)
}
