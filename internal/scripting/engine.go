package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM. The VM is not goroutine-safe and
// every region goroutine may call in, so calls are serialised by mu.
type Engine struct {
	mu      sync.Mutex
	vm      *lua.LState
	missing map[string]bool
	log     *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, missing: make(map[string]bool), log: log}
	vm.SetGlobal("server_log", vm.NewFunction(e.luaLog))

	for _, sub := range []string{"core", "world", "merchant"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// DoString runs a chunk of Lua. Used to load scripts that do not live on disk.
func (e *Engine) DoString(src string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vm.DoString(src)
}

// luaLog lets scripts write to the server log: server_log(msg).
func (e *Engine) luaLog(L *lua.LState) int {
	e.log.Info("lua", zap.String("msg", L.CheckString(1)))
	return 0
}

// JumpContext describes a player asking to use a zone point.
type JumpContext struct {
	Player       string
	Realm        int
	Level        int
	Region       int
	ZonePoint    int
	TargetRegion int
}

// CanJump calls the Lua check fnName with the jump context. The function
// returns allowed and an optional denial message. A missing function allows
// the jump and is logged once per name. A script error denies it.
func (e *Engine) CanJump(fnName string, ctx JumpContext) (bool, string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.vm.GetGlobal(fnName)
	if fn == lua.LNil {
		if !e.missing[fnName] {
			e.missing[fnName] = true
			e.log.Warn("lua jump check not found, allowing", zap.String("func", fnName))
		}
		return true, ""
	}

	t := e.vm.NewTable()
	t.RawSetString("player", lua.LString(ctx.Player))
	t.RawSetString("realm", lua.LNumber(ctx.Realm))
	t.RawSetString("level", lua.LNumber(ctx.Level))
	t.RawSetString("region", lua.LNumber(ctx.Region))
	t.RawSetString("zone_point", lua.LNumber(ctx.ZonePoint))
	t.RawSetString("target_region", lua.LNumber(ctx.TargetRegion))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    2,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua jump check error", zap.String("func", fnName), zap.Error(err))
		return false, "You cannot go there right now."
	}

	allowed := e.vm.Get(-2)
	msg := e.vm.Get(-1)
	e.vm.Pop(2)

	if lua.LVAsBool(allowed) {
		return true, ""
	}
	if msg == lua.LNil {
		return false, ""
	}
	return false, lua.LVAsString(msg)
}

// PriceContext describes one merchant purchase.
type PriceContext struct {
	Template  string
	BasePrice int64
	Count     int
	Realm     int
	Level     int
	Region    int
}

// PriceModifier returns the unit price for a purchase. When the optional
// global merchant_price is not defined, or fails, the base price is used.
func (e *Engine) PriceModifier(ctx PriceContext) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.vm.GetGlobal("merchant_price")
	if fn == lua.LNil {
		return ctx.BasePrice
	}

	t := e.vm.NewTable()
	t.RawSetString("template", lua.LString(ctx.Template))
	t.RawSetString("base_price", lua.LNumber(ctx.BasePrice))
	t.RawSetString("count", lua.LNumber(ctx.Count))
	t.RawSetString("realm", lua.LNumber(ctx.Realm))
	t.RawSetString("level", lua.LNumber(ctx.Level))
	t.RawSetString("region", lua.LNumber(ctx.Region))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua merchant_price error", zap.Error(err))
		return ctx.BasePrice
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	n, ok := result.(lua.LNumber)
	if !ok || n < 0 {
		e.log.Error("lua merchant_price returned invalid price", zap.String("value", result.String()))
		return ctx.BasePrice
	}
	return int64(n)
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}
