package engine

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/Shopify/go-lua"

	"github.com/hexaflow/engine/pkg/api"
	"github.com/hexaflow/engine/pkg/util"
)

type (
	// ExprEnv evaluates boolean condition expressions in a pooled Lua
	// environment. Compiled expressions are cached by source text.
	ExprEnv struct {
		compiled  *util.LRUCache[*compiledExpr]
		statePool chan *lua.State
	}

	compiledExpr struct {
		bytecode []byte
	}
)

const (
	exprCacheSize       = 4096
	luaStatePoolSize    = 10
	luaGlobalTableIndex = -2
	luaArrayTableIndex  = -3
	luaMapTableIndex    = -3
	luaGlobalTableName  = "_G"

	// Expressions receive the run context as their only argument and must
	// produce a value; truthiness follows Lua rules
	exprSourceTemplate = "local context = select(1, ...)\nreturn (%s)"
)

var (
	ErrExprEmpty     = errors.New("expression is empty")
	ErrExprCompile   = errors.New("expression compile error")
	ErrExprExecution = errors.New("expression execution error")
)

var luaExclude = [...]string{
	"io", "os", "debug", "package", "require", "dofile", "loadfile", "load",
}

// NewExprEnv creates an expression environment with a state pool for
// efficient reuse across runs
func NewExprEnv() *ExprEnv {
	return &ExprEnv{
		compiled:  util.NewLRUCache[*compiledExpr](exprCacheSize),
		statePool: make(chan *lua.State, luaStatePoolSize),
	}
}

// Eval evaluates a boolean expression against the run context
func (e *ExprEnv) Eval(expr string, ctx api.Context) (bool, error) {
	if strings.TrimSpace(expr) == "" {
		return false, ErrExprEmpty
	}

	c, err := e.compiled.Get(expr, func() (*compiledExpr, error) {
		return e.compile(expr)
	})
	if err != nil {
		return false, err
	}

	L := e.getState()
	defer e.returnState(L)

	e.setupSandbox(L)
	if err := L.Load(bytes.NewReader(c.bytecode), "chunk", "b"); err != nil {
		return false, fmt.Errorf("%w: %w", ErrExprCompile, err)
	}

	pushLuaMap(L, ctx)
	if err := L.ProtectedCall(1, 1, 0); err != nil {
		return false, fmt.Errorf("%w: %w", ErrExprExecution, err)
	}

	result := L.ToBoolean(-1)
	L.Pop(1)
	return result, nil
}

// Validate checks an expression compiles without evaluating it
func (e *ExprEnv) Validate(expr string) error {
	_, err := e.compiled.Get(expr, func() (*compiledExpr, error) {
		return e.compile(expr)
	})
	return err
}

func (e *ExprEnv) compile(expr string) (*compiledExpr, error) {
	src := fmt.Sprintf(exprSourceTemplate, expr)

	L := lua.NewState()
	e.setupSandbox(L)

	if err := lua.LoadString(L, src); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExprCompile, err)
	}

	var buf bytes.Buffer
	if err := L.Dump(&buf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExprCompile, err)
	}
	return &compiledExpr{bytecode: buf.Bytes()}, nil
}

func (e *ExprEnv) setupSandbox(L *lua.State) {
	lua.OpenLibraries(L)
	L.Global(luaGlobalTableName)
	for _, name := range luaExclude {
		L.PushNil()
		L.SetField(luaGlobalTableIndex, name)
	}
	L.Pop(1)
}

func (e *ExprEnv) getState() *lua.State {
	select {
	case L := <-e.statePool:
		return L
	default:
		return lua.NewState()
	}
}

func (e *ExprEnv) returnState(L *lua.State) {
	L.SetTop(0)

	select {
	case e.statePool <- L:
	default:
	}
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
		pushLuaArray(L, v)
	case map[string]any:
		pushLuaMap(L, v)
	case api.Context:
		pushLuaMap(L, v)
	case nil:
		L.PushNil()
	default:
		L.PushString(fmt.Sprintf("%v", v))
	}
}

func pushLuaArray(L *lua.State, arr []any) {
	L.CreateTable(len(arr), 0)
	for i, item := range arr {
		L.PushInteger(i + 1)
		goToLua(L, item)
		L.SetTable(luaArrayTableIndex)
	}
}

func pushLuaMap[M ~map[string]any](L *lua.State, m M) {
	L.CreateTable(0, len(m))
	for k, val := range m {
		L.PushString(k)
		goToLua(L, val)
		L.SetTable(luaMapTableIndex)
	}
}
