package sequence

import (
	"fmt"
	"sync"
)

// Predicate is the shape of a function nameable from a step's Condition.
type Predicate func(responses Responses, args map[string]any) bool

// Handler is the shape of a function nameable from a step's
// ErrorHandler.CallbackKey. It returns whether the error was fully
// resolved (spec §9(iii)): truthy resolves, falsy or error propagates.
type Handler func(args map[string]any, cause error) (resolved bool, err error)

// predicateRegistry and handlerRegistry are the named-registry substitute
// for the source's eval-based serialized function values (spec §4.1, §9).
// They are process-wide, read-only after the handler binary's init()
// functions populate them — the same shape as the teacher's package-level
// default logger, not the kind of per-invocation mutable state spec §9
// warns against.
var (
	registryMu        sync.RWMutex
	predicateRegistry = map[string]Predicate{}
	handlerRegistry   = map[string]Handler{}
)

// RegisterPredicate names a conditional predicate so step.Condition can
// reference it by key instead of carrying source code.
func RegisterPredicate(name string, fn Predicate) {
	registryMu.Lock()
	defer registryMu.Unlock()
	predicateRegistry[name] = fn
}

// RegisterHandler names an in-process error handler so
// step.OnErrorSpec.CallbackKey can reference it by key.
func RegisterHandler(name string, fn Handler) {
	registryMu.Lock()
	defer registryMu.Unlock()
	handlerRegistry[name] = fn
}

func lookupPredicate(name string) (Predicate, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fn, ok := predicateRegistry[name]
	return fn, ok
}

func lookupHandler(name string) (Handler, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fn, ok := handlerRegistry[name]
	return fn, ok
}

// InvokeHandler runs the named in-process error handler (registered via
// RegisterHandler) — the wrapper's entry point for a step's
// OnErrorSpec.CallbackKey (spec §4.5.1 step 4, §9(iii)).
func InvokeHandler(name string, args map[string]any, cause error) (resolved bool, err error) {
	fn, ok := lookupHandler(name)
	if !ok {
		return false, fmt.Errorf("sequence: no handler registered for %q", name)
	}
	return fn(args, cause)
}
