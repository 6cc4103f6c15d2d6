package modscript

import (
	"fmt"
	"reflect"

	lua "github.com/yuin/gopher-lua"

	"github.com/totodo713/ecsforge/internal/ecs"
	"github.com/totodo713/ecsforge/internal/ecs/codegen"
)

// populateFromLuaTable copies values out of a Lua table into target's
// exported fields, driven by the schema's declared field names rather than
// struct tags — the teacher's convertLuaToGo (lua_bridge.go) walked struct
// fields via reflection using json tags; mod-script components have no
// Go-side tags of their own, so this walks the codegen FieldSchema list
// instead and looks up each field on target by name.
func populateFromLuaTable(target interface{}, fields []codegen.FieldSchema, table *lua.LTable) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr {
		return fmt.Errorf("modscript: component factory must return a pointer, got %T", target)
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("modscript: component must be backed by a struct, got %T", target)
	}

	for _, f := range fields {
		field := v.FieldByName(f.Name)
		if !field.IsValid() || !field.CanSet() {
			continue
		}
		lv := table.RawGetString(f.Name)
		if lv == lua.LNil {
			continue
		}
		if err := setFieldFromLua(field, lv); err != nil {
			return fmt.Errorf("modscript: field %s: %w", f.Name, err)
		}
	}
	return nil
}

func setFieldFromLua(field reflect.Value, lv lua.LValue) error {
	switch field.Kind() {
	case reflect.String:
		s, ok := lv.(lua.LString)
		if !ok {
			return fmt.Errorf("expected string, got %s", lv.Type())
		}
		field.SetString(string(s))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := lv.(lua.LNumber)
		if !ok {
			return fmt.Errorf("expected number, got %s", lv.Type())
		}
		field.SetInt(int64(n))
	case reflect.Float32, reflect.Float64:
		n, ok := lv.(lua.LNumber)
		if !ok {
			return fmt.Errorf("expected number, got %s", lv.Type())
		}
		field.SetFloat(float64(n))
	case reflect.Bool:
		b, ok := lv.(lua.LBool)
		if !ok {
			return fmt.Errorf("expected bool, got %s", lv.Type())
		}
		field.SetBool(bool(b))
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}

func destinationFromString(s string) (ecs.Destination, error) {
	return codegen.ParseDestination(s)
}
