package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	h := NoopLoaderHooks{}
	h.OnLoad(ctx, "sqlite", 3, time.Second, nil)
	h.OnSave(ctx, "file", 3, true, time.Second, nil)
	h.OnZoomLevelSave(ctx, "sqlite", 0, 4, nil)
	h.OnTileSave(ctx, "sqlite", 0, errors.New("boom"))
}

func TestLoaderHooksRegistry(t *testing.T) {
	Reset()
	defer Reset()

	if _, ok := Loader().(NoopLoaderHooks); !ok {
		t.Error("Loader() should return NoopLoaderHooks by default")
	}

	custom := &recordingHooks{}
	SetLoaderHooks(custom)
	if Loader() != custom {
		t.Error("SetLoaderHooks should set custom hooks")
	}

	SetLoaderHooks(nil)
	if Loader() != custom {
		t.Error("SetLoaderHooks(nil) should keep existing hooks")
	}

	Loader().OnSave(context.Background(), "sqlite", 7, false, time.Millisecond, nil)
	if custom.saves != 1 || custom.lastBranches != 7 {
		t.Errorf("custom hooks not called: %+v", custom)
	}

	Reset()
	if _, ok := Loader().(NoopLoaderHooks); !ok {
		t.Error("Reset should restore NoopLoaderHooks")
	}
}

type recordingHooks struct {
	NoopLoaderHooks
	saves        int
	lastBranches int
}

func (r *recordingHooks) OnSave(_ context.Context, _ string, branches int, _ bool, _ time.Duration, _ error) {
	r.saves++
	r.lastBranches = branches
}
