package modscript

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/totodo713/ecsforge/internal/ecs"
)

// installAPI populates the global "ecs" table with the operations a mod
// script is allowed to perform: spawning/destroying entities, attaching
// components by schema name, and publishing system messages. Grounded on
// the teacher's mod/mod_api.go ModECSAPI surface, narrowed to what the
// codegen registry can resolve by name.
func (vm *VM) installAPI() {
	tbl := vm.state.NewTable()

	vm.state.SetFuncs(tbl, map[string]lua.LGFunction{
		"spawn_entity":     vm.luaSpawnEntity,
		"destroy_entity":   vm.luaDestroyEntity,
		"add_component":    vm.luaAddComponent,
		"remove_component": vm.luaRemoveComponent,
		"publish_message":  vm.luaPublishMessage,
	})

	vm.state.SetGlobal("ecs", tbl)
}

func (vm *VM) luaSpawnEntity(L *lua.LState) int {
	id, err := vm.world.CreateEntity()
	if err != nil {
		L.RaiseError("spawn_entity: %v", err)
		return 0
	}
	L.Push(lua.LNumber(id))
	return 1
}

func (vm *VM) luaDestroyEntity(L *lua.LState) int {
	id := ecs.EntityID(L.CheckNumber(1))
	if err := vm.world.DestroyEntity(id); err != nil {
		L.RaiseError("destroy_entity: %v", err)
	}
	return 0
}

func (vm *VM) luaAddComponent(L *lua.LState) int {
	id := ecs.EntityID(L.CheckNumber(1))
	name := L.CheckString(2)
	fieldsTable := L.OptTable(3, L.NewTable())

	idx, ok := vm.registry.ComponentIndex(name)
	if !ok {
		L.RaiseError("add_component: unknown component %q", name)
		return 0
	}
	comp, err := vm.registry.NewComponent(name)
	if err != nil {
		L.RaiseError("add_component: %v", err)
		return 0
	}
	if fields, ok := vm.registry.Fields(name); ok {
		if err := populateFromLuaTable(comp, fields, fieldsTable); err != nil {
			L.RaiseError("add_component: %v", err)
			return 0
		}
	}
	if err := vm.world.AddComponent(id, idx, comp); err != nil {
		L.RaiseError("add_component: %v", err)
	}
	return 0
}

func (vm *VM) luaRemoveComponent(L *lua.LState) int {
	id := ecs.EntityID(L.CheckNumber(1))
	name := L.CheckString(2)
	idx, ok := vm.registry.ComponentIndex(name)
	if !ok {
		L.RaiseError("remove_component: unknown component %q", name)
		return 0
	}
	if err := vm.world.RemoveComponent(id, idx); err != nil {
		L.RaiseError("remove_component: %v", err)
	}
	return 0
}

func (vm *VM) luaPublishMessage(L *lua.LState) int {
	name := L.CheckString(1)
	destStr := L.OptString(2, "local")
	fieldsTable := L.OptTable(3, L.NewTable())

	idx, ok := vm.registry.SystemMessageIndex(name)
	if !ok {
		L.RaiseError("publish_message: unknown system message %q", name)
		return 0
	}
	msg, err := vm.registry.NewMessage(name)
	if err != nil {
		L.RaiseError("publish_message: %v", err)
		return 0
	}
	if fields, ok := vm.registry.Fields(name); ok {
		if err := populateFromLuaTable(msg, fields, fieldsTable); err != nil {
			L.RaiseError("publish_message: %v", err)
			return 0
		}
	}
	dest, err := destinationFromString(destStr)
	if err != nil {
		L.RaiseError("publish_message: %v", err)
		return 0
	}
	// A script has no way to name the one system that must receive a
	// unicast message, so a Lua-originated publish always fans out to every
	// currently-subscribed system (spec §4.7's multicast mode) rather than
	// requiring the unicast Target a Go-side caller would supply.
	if err := vm.world.Bus.Publish(ecs.SystemMessage{
		Index: idx, Payload: msg, Destination: dest, Multicast: true,
	}); err != nil {
		L.RaiseError("publish_message: %v", err)
	}
	return 0
}
