package shardbus_test

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/randalmurphal/shardbus/pkg/shardbus"
)

func noopHandler(name string) *shardbus.Handler {
	return shardbus.NamedHandler(name, func(shardbus.Event) error { return nil })
}

func TestRegistryRegisterDedup(t *testing.T) {
	r := shardbus.NewRegistry()

	calls := 0
	h := shardbus.NamedHandler("dup", func(shardbus.Event) error {
		calls++
		return nil
	})

	r.Register("order.created", h)
	r.Register("order.created", h)
	r.Register("order.created", h)

	assert.Len(t, r.Handlers("order.created"), 1)

	r.Dispatch(shardbus.NewEvent("order.created", nil))
	assert.Equal(t, 1, calls)

	// The same handle on a second type is an independent registration.
	r.Register("order.cancelled", h)
	assert.Len(t, r.Handlers("order.cancelled"), 1)
	assert.Equal(t, 2, r.Len())
}

func TestRegistryDistinctHandlesSameFunc(t *testing.T) {
	r := shardbus.NewRegistry()

	fn := func(shardbus.Event) error { return nil }
	h1 := shardbus.NamedHandler("first", fn)
	h2 := shardbus.NamedHandler("second", fn)

	r.Register("order.created", h1)
	r.Register("order.created", h2)

	assert.Len(t, r.Handlers("order.created"), 2)
}

func TestRegistryUnregisterPrunes(t *testing.T) {
	r := shardbus.NewRegistry()
	h1 := noopHandler("h1")
	h2 := noopHandler("h2")

	r.Register("order.created", h1)
	r.Register("order.created", h2)
	require.True(t, r.Has("order.created"))

	r.Unregister("order.created", h1)
	assert.True(t, r.Has("order.created"))

	r.Unregister("order.created", h2)
	assert.False(t, r.Has("order.created"))
	assert.Empty(t, r.Types())
}

func TestRegistryUnregisterUnknownNoOp(t *testing.T) {
	r := shardbus.NewRegistry()
	h := noopHandler("h")

	// None of these may panic or change state.
	r.Unregister("never.registered", h)
	r.Unregister("", h)
	r.Unregister("never.registered", nil)
	r.UnregisterAll(h)
	r.UnregisterAll(nil)

	assert.Equal(t, 0, r.Len())

	// Unregistering a handle that was never on this type leaves the
	// type's other handlers alone.
	other := noopHandler("other")
	r.Register("order.created", other)
	r.Unregister("order.created", h)
	assert.Len(t, r.Handlers("order.created"), 1)
}

func TestRegistryIgnoresEmptyTypeAndNilHandle(t *testing.T) {
	r := shardbus.NewRegistry()

	r.Register("", noopHandler("h"))
	r.Register("order.created", nil)
	r.RegisterAll(nil)

	assert.Equal(t, 0, r.Len())
	assert.False(t, r.Has(""))
}

func TestRegistryDispatchOrder(t *testing.T) {
	r := shardbus.NewRegistry()

	var got []string
	record := func(name string) *shardbus.Handler {
		return shardbus.NamedHandler(name, func(shardbus.Event) error {
			got = append(got, name)
			return nil
		})
	}

	r.Register("order.created", record("typed-1"))
	r.Register("order.created", record("typed-2"))
	r.RegisterAll(record("general-1"))
	r.RegisterAll(record("general-2"))

	faults := r.Dispatch(shardbus.NewEvent("order.created", nil))
	assert.Empty(t, faults)
	assert.Equal(t, []string{"typed-1", "typed-2", "general-1", "general-2"}, got)
}

func TestRegistryDispatchGeneralOnly(t *testing.T) {
	r := shardbus.NewRegistry()

	var got []string
	r.RegisterAll(shardbus.NamedHandler("audit", func(evt shardbus.Event) error {
		got = append(got, evt.Type)
		return nil
	}))

	r.Dispatch(shardbus.NewEvent("order.created", nil))
	r.Dispatch(shardbus.NewEvent("tick.btcusdt", nil))

	assert.Equal(t, []string{"order.created", "tick.btcusdt"}, got)
}

func TestRegistryDispatchSameHandleTypedAndGeneral(t *testing.T) {
	r := shardbus.NewRegistry()

	calls := 0
	h := shardbus.NamedHandler("both", func(shardbus.Event) error {
		calls++
		return nil
	})
	r.Register("order.created", h)
	r.RegisterAll(h)

	r.Dispatch(shardbus.NewEvent("order.created", nil))
	assert.Equal(t, 2, calls)

	r.Dispatch(shardbus.NewEvent("other.type", nil))
	assert.Equal(t, 3, calls)
}

func TestRegistryDispatchFaultIsolation(t *testing.T) {
	r := shardbus.NewRegistry()

	sentinel := errors.New("db unavailable")
	var got []string
	record := func(name string) {
		got = append(got, name)
	}

	r.Register("order.created", shardbus.NamedHandler("failing", func(shardbus.Event) error {
		record("failing")
		return sentinel
	}))
	r.Register("order.created", shardbus.NamedHandler("panicking", func(shardbus.Event) error {
		record("panicking")
		panic("boom")
	}))
	r.Register("order.created", shardbus.NamedHandler("healthy", func(shardbus.Event) error {
		record("healthy")
		return nil
	}))

	faults := r.Dispatch(shardbus.NewEvent("order.created", nil))

	// Every handler ran despite the failures before it.
	assert.Equal(t, []string{"failing", "panicking", "healthy"}, got)
	require.Len(t, faults, 2)

	assert.Equal(t, "failing", faults[0].Handler)
	assert.False(t, faults[0].Panicked)
	assert.True(t, errors.Is(faults[0], sentinel))

	assert.Equal(t, "panicking", faults[1].Handler)
	assert.True(t, faults[1].Panicked)
	assert.Contains(t, faults[1].Err.Error(), "boom")
	assert.NotEmpty(t, faults[1].Stack)
	assert.Equal(t, "order.created", faults[1].EventType)
}

func TestRegistryDispatchReentrantUnregister(t *testing.T) {
	r := shardbus.NewRegistry()

	var h *shardbus.Handler
	calls := 0
	h = shardbus.NamedHandler("once", func(shardbus.Event) error {
		calls++
		r.Unregister("order.created", h)
		return nil
	})
	r.Register("order.created", h)

	r.Dispatch(shardbus.NewEvent("order.created", nil))
	r.Dispatch(shardbus.NewEvent("order.created", nil))

	assert.Equal(t, 1, calls)
	assert.False(t, r.Has("order.created"))
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := shardbus.NewRegistry()

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				h := noopHandler(fmt.Sprintf("h-%d-%d", g, i))
				r.Register("order.created", h)
				r.Dispatch(shardbus.NewEvent("order.created", i))
				r.Unregister("order.created", h)
			}
		}(g)
	}
	wg.Wait()

	assert.False(t, r.Has("order.created"))
	assert.Equal(t, 0, r.Len())
}

// TestRegistryMatchesModel drives random operation sequences against a
// plain-map model and checks the registry agrees on membership, order,
// and pruning.
func TestRegistryMatchesModel(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		r := shardbus.NewRegistry()

		pool := make([]*shardbus.Handler, 4)
		for i := range pool {
			pool[i] = noopHandler(fmt.Sprintf("h%d", i))
		}
		types := []string{"alpha", "beta", "gamma"}

		model := make(map[string][]int)
		var generalModel []int

		numOps := rapid.IntRange(1, 60).Draw(rt, "numOps")
		for i := 0; i < numOps; i++ {
			op := rapid.SampledFrom([]string{"register", "unregister", "registerAll", "unregisterAll"}).Draw(rt, "op")
			h := rapid.IntRange(0, len(pool)-1).Draw(rt, "handler")

			switch op {
			case "register":
				typ := rapid.SampledFrom(types).Draw(rt, "type")
				r.Register(typ, pool[h])
				if !slices.Contains(model[typ], h) {
					model[typ] = append(model[typ], h)
				}
			case "unregister":
				typ := rapid.SampledFrom(types).Draw(rt, "type")
				r.Unregister(typ, pool[h])
				if trimmed := slices.DeleteFunc(model[typ], func(x int) bool { return x == h }); len(trimmed) == 0 {
					delete(model, typ)
				} else {
					model[typ] = trimmed
				}
			case "registerAll":
				r.RegisterAll(pool[h])
				if !slices.Contains(generalModel, h) {
					generalModel = append(generalModel, h)
				}
			case "unregisterAll":
				r.UnregisterAll(pool[h])
				generalModel = slices.DeleteFunc(generalModel, func(x int) bool { return x == h })
			}
		}

		wantTypes := make([]string, 0, len(model))
		for typ := range model {
			wantTypes = append(wantTypes, typ)
		}
		sort.Strings(wantTypes)
		assert.Equal(rt, wantTypes, r.Types())

		total := len(generalModel)
		for typ, want := range model {
			total += len(want)
			got := r.Handlers(typ)
			require.Len(rt, got, len(want))
			for i, idx := range want {
				assert.Same(rt, pool[idx], got[i])
			}
		}

		general := r.GeneralHandlers()
		require.Len(rt, general, len(generalModel))
		for i, idx := range generalModel {
			assert.Same(rt, pool[idx], general[i])
		}

		assert.Equal(rt, total, r.Len())
	})
}
