package scripts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dop251/goja"
)

// callTimeout caps how long a single script function may run.
const callTimeout = 30 * time.Second

// ScriptRuntime manages a goja VM for a script source.
type ScriptRuntime struct {
	vm        *goja.Runtime
	manifest  *ScriptManifest
	api       *PodmillAPI
	scriptDir string
}

// NewScriptRuntime creates a runtime for a script: injects the host
// API, applies manifest config defaults, executes the entry point and
// verifies the required exports.
func NewScriptRuntime(manifest *ScriptManifest, scriptDir string) (*ScriptRuntime, error) {
	vm := goja.New()

	api := NewPodmillAPI(manifest.ID)
	api.Inject(vm)

	// Flatten config entries of the form {"type": ..., "default": ...}
	// down to their default values.
	config := make(map[string]interface{})
	for k, v := range manifest.Config {
		if configObj, ok := v.(map[string]interface{}); ok {
			if defaultVal, ok := configObj["default"]; ok {
				config[k] = defaultVal
			}
		} else {
			config[k] = v
		}
	}
	api.SetConfig(vm, config)

	scriptPath := filepath.Join(scriptDir, manifest.EntryPoint)
	scriptData, err := os.ReadFile(scriptPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read script entry point: %w", err)
	}

	exports := vm.NewObject()
	vm.Set("exports", exports)

	// Wrap the script in a function for a CommonJS-like module context.
	moduleScript := fmt.Sprintf(`
		(function(exports) {
			%s
		})(exports);
	`, string(scriptData))

	if _, err := vm.RunString(moduleScript); err != nil {
		return nil, fmt.Errorf("failed to execute script: %w", err)
	}

	r := &ScriptRuntime{
		vm:        vm,
		manifest:  manifest,
		api:       api,
		scriptDir: scriptDir,
	}

	required := []string{"getInfo", "fetchContent"}
	if manifest.Capabilities["discover"] {
		required = append(required, "discover")
	}
	for _, name := range required {
		if !r.HasFunction(name) {
			return nil, fmt.Errorf("script missing required export: %s", name)
		}
	}

	return r, nil
}

// Manifest returns the script manifest.
func (r *ScriptRuntime) Manifest() *ScriptManifest {
	return r.manifest
}

// HasFunction reports whether the script exports a callable function
// with the given name.
func (r *ScriptRuntime) HasFunction(name string) bool {
	exports := r.vm.Get("exports")
	if exports == nil {
		return false
	}
	fn := exports.ToObject(r.vm).Get(name)
	if fn == nil || goja.IsUndefined(fn) || goja.IsNull(fn) {
		return false
	}
	_, ok := goja.AssertFunction(fn)
	return ok
}

// Call calls a script function with panic recovery and a timeout.
func (r *ScriptRuntime) Call(functionName string, args ...interface{}) (goja.Value, error) {
	return r.CallWithContext(context.Background(), functionName, args...)
}

// CallWithContext calls a script function; the context can cancel the
// call early. On timeout or cancellation the VM is interrupted so a
// runaway script cannot spin forever.
func (r *ScriptRuntime) CallWithContext(ctx context.Context, functionName string, args ...interface{}) (goja.Value, error) {
	exports := r.vm.Get("exports")
	if exports == nil {
		return nil, fmt.Errorf("exports not found")
	}

	fn := exports.ToObject(r.vm).Get(functionName)
	if fn == nil || goja.IsUndefined(fn) || goja.IsNull(fn) {
		return nil, fmt.Errorf("function %s not found", functionName)
	}
	callable, ok := goja.AssertFunction(fn)
	if !ok {
		return nil, fmt.Errorf("function %s is not callable", functionName)
	}

	r.vm.ClearInterrupt()

	gojaArgs := make([]goja.Value, len(args))
	for i, arg := range args {
		gojaArgs[i] = r.api.GoToJS(r.vm, arg)
	}
	// The podmill host object rides along as the last argument.
	gojaArgs = append(gojaArgs, r.vm.Get("podmill"))

	scriptID := r.manifest.ID
	done := make(chan goja.Value, 1)
	errChan := make(chan error, 1)

	go func() {
		defer func() {
			if panicVal := recover(); panicVal != nil {
				errChan <- &ScriptError{
					ScriptID: scriptID,
					Function: functionName,
					Message:  fmt.Sprintf("panic: %v", panicVal),
					IsPanic:  true,
				}
			}
		}()

		val, err := callable(goja.Undefined(), gojaArgs...)
		if err != nil {
			errChan <- &ScriptError{
				ScriptID: scriptID,
				Function: functionName,
				Message:  err.Error(),
				Cause:    err,
			}
			return
		}
		done <- val
	}()

	select {
	case val := <-done:
		return val, nil
	case err := <-errChan:
		return nil, err
	case <-ctx.Done():
		r.vm.Interrupt("call cancelled")
		return nil, &ScriptError{
			ScriptID:  scriptID,
			Function:  functionName,
			Message:   "cancelled",
			IsTimeout: true,
		}
	case <-time.After(callTimeout):
		r.vm.Interrupt("call timed out")
		return nil, &ScriptError{
			ScriptID:  scriptID,
			Function:  functionName,
			Message:   fmt.Sprintf("timeout after %s", callTimeout),
			IsTimeout: true,
		}
	}
}
