package selector

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Shopify/go-lua"
)

// LuaEnv provides a sandboxed Lua environment for selector expressions,
// with a pool of reusable interpreter states
type LuaEnv struct {
	statePool chan *lua.State
}

const (
	luaStatePoolSize    = 10
	luaGlobalTableIndex = -2
	luaGlobalTableName  = "_G"
)

var (
	ErrLuaLoad      = errors.New("lua load error")
	ErrLuaExecution = errors.New("lua execution error")
)

var luaExclude = [...]string{
	"io", "os", "debug", "package", "require", "dofile", "loadfile", "load",
}

// NewLuaEnv creates a sandboxed Lua selector environment
func NewLuaEnv() *LuaEnv {
	return &LuaEnv{
		statePool: make(chan *lua.State, luaStatePoolSize),
	}
}

// EvalPredicate evaluates a Lua expression with the packet data bound as
// globals and returns its boolean result
func (e *LuaEnv) EvalPredicate(
	script string, data map[string]any,
) (bool, error) {
	L := e.getState()
	defer e.returnState(L, data)

	for name, value := range data {
		goToLua(L, value)
		L.SetGlobal(name)
	}

	src := script
	if !strings.HasPrefix(strings.TrimSpace(script), "return") {
		src = "return (" + script + ")"
	}
	if err := lua.LoadString(L, src); err != nil {
		return false, fmt.Errorf("%w: %w", ErrLuaLoad, err)
	}
	if err := L.ProtectedCall(0, 1, 0); err != nil {
		return false, fmt.Errorf("%w: %w", ErrLuaExecution, err)
	}

	result := L.ToBoolean(-1)
	L.Pop(1)
	return result, nil
}

func (e *LuaEnv) getState() *lua.State {
	select {
	case L := <-e.statePool:
		return L
	default:
		L := lua.NewState()
		setupSandbox(L)
		return L
	}
}

// returnState clears the stack and the globals bound for this evaluation so
// a pooled state cannot leak one packet's data into another's
func (e *LuaEnv) returnState(L *lua.State, data map[string]any) {
	L.SetTop(0)
	for name := range data {
		L.PushNil()
		L.SetGlobal(name)
	}

	select {
	case e.statePool <- L:
	default:
	}
}

func setupSandbox(L *lua.State) {
	lua.OpenLibraries(L)
	L.Global(luaGlobalTableName)
	for _, name := range luaExclude {
		L.PushNil()
		L.SetField(luaGlobalTableIndex, name)
	}
	L.Pop(1)
}

func goToLua(L *lua.State, value any) {
	switch v := value.(type) {
	case string:
		L.PushString(v)
	case bool:
		L.PushBoolean(v)
	case int:
		L.PushInteger(v)
	case int64:
		L.PushInteger(int(v))
	case float64:
		L.PushNumber(v)
	case []any:
		L.CreateTable(len(v), 0)
		for i, item := range v {
			L.PushInteger(i + 1)
			goToLua(L, item)
			L.SetTable(-3)
		}
	case map[string]any:
		L.CreateTable(0, len(v))
		for k, val := range v {
			L.PushString(k)
			goToLua(L, val)
			L.SetTable(-3)
		}
	case nil:
		L.PushNil()
	default:
		L.PushString(fmt.Sprintf("%v", v))
	}
}
