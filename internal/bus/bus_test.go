package bus

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPublish_FanOutInSubscriptionOrder(t *testing.T) {
	b := New()

	var got []string
	b.Subscribe(KindTermResize, func(e Event) {
		resize := e.(TermResize)
		require.Equal(t, 80, resize.Width)
		require.Equal(t, 24, resize.Height)
		got = append(got, "first")
	})
	b.Subscribe(KindTermResize, func(e Event) {
		resize := e.(TermResize)
		require.Equal(t, 80, resize.Width)
		require.Equal(t, 24, resize.Height)
		got = append(got, "second")
	})

	delivered := b.Publish(TermResize{Width: 80, Height: 24})

	require.True(t, delivered)
	require.Equal(t, []string{"first", "second"}, got)
}

func TestPublish_NoListenersIsANoOp(t *testing.T) {
	b := New()

	require.NotPanics(t, func() {
		require.False(t, b.Publish(AppStart{}))
	})
}

func TestPublish_ListenerPanicDoesNotStopFanOut(t *testing.T) {
	b := New()

	var got []string
	b.Subscribe(KindAppStop, func(Event) { got = append(got, "before") })
	b.Subscribe(KindAppStop, func(Event) { panic("listener blew up") })
	b.Subscribe(KindAppStop, func(Event) { got = append(got, "after") })

	require.NotPanics(t, func() {
		require.True(t, b.Publish(AppStop{}))
	})
	require.Equal(t, []string{"before", "after"}, got)
}

func TestPublish_OtherKindsNotInvoked(t *testing.T) {
	b := New()

	invoked := false
	b.Subscribe(KindAppError, func(Event) { invoked = true })

	b.Publish(AppStart{})

	require.False(t, invoked)
}

func TestSubscribe_SameFuncTwiceCreatesTwoRegistrations(t *testing.T) {
	b := New()

	count := 0
	fn := func(Event) { count++ }
	b.Subscribe(KindAppStart, fn)
	b.Subscribe(KindAppStart, fn)

	require.Equal(t, 2, b.ListenerCount(KindAppStart))

	b.Publish(AppStart{})
	require.Equal(t, 2, count)
}

func TestUnsubscribe_RemovedListenerNeverInvoked(t *testing.T) {
	b := New()

	var got []string
	b.Subscribe(KindTermKey, func(Event) { got = append(got, "kept") })
	sub := b.Subscribe(KindTermKey, func(Event) { got = append(got, "removed") })

	b.Unsubscribe(sub)
	b.Publish(TermKey{Name: "q", Raw: []rune{'q'}})

	require.Equal(t, []string{"kept"}, got)
	require.Equal(t, 1, b.ListenerCount(KindTermKey))
}

func TestUnsubscribe_UnknownSubscriptionIsANoOp(t *testing.T) {
	b := New()
	sub := b.Subscribe(KindTermKey, func(Event) {})
	b.Unsubscribe(sub)

	require.NotPanics(t, func() {
		b.Unsubscribe(sub)
		b.Unsubscribe(Subscription{kind: KindAppStop, id: 999})
	})
}

func TestSubscribeOnce_AtMostOneInvocation(t *testing.T) {
	b := New()

	count := 0
	b.SubscribeOnce(KindAppError, func(Event) { count++ })

	b.Publish(AppError{})
	b.Publish(AppError{})
	b.Publish(AppError{})

	require.Equal(t, 1, count)
	require.Equal(t, 0, b.ListenerCount(KindAppError))
}

func TestSubscribeOnce_RemovedBeforeInvocation(t *testing.T) {
	b := New()

	// The registration must already be gone while the listener runs.
	var countDuring int
	b.SubscribeOnce(KindAppStart, func(Event) {
		countDuring = b.ListenerCount(KindAppStart)
	})

	b.Publish(AppStart{})

	require.Equal(t, 0, countDuring)
}

func TestPublish_ReentrantPublishSameKind(t *testing.T) {
	b := New()

	var got []string
	depth := 0
	b.Subscribe(KindTermKey, func(e Event) {
		got = append(got, "a")
		if depth == 0 {
			depth++
			b.Publish(TermKey{Name: "x"})
		}
	})
	b.Subscribe(KindTermKey, func(Event) { got = append(got, "b") })

	require.NotPanics(t, func() {
		b.Publish(TermKey{Name: "q"})
	})

	// Outer fan-out: a (which nests a full a,b fan-out), then b.
	require.Equal(t, []string{"a", "a", "b", "b"}, got)
}

func TestPublish_ListenerSubscribingDuringFanOut(t *testing.T) {
	b := New()

	lateInvoked := false
	b.Subscribe(KindAppStart, func(Event) {
		b.Subscribe(KindAppStart, func(Event) { lateInvoked = true })
	})

	b.Publish(AppStart{})
	require.False(t, lateInvoked, "listener added mid-dispatch must not join the in-flight fan-out")

	b.Publish(AppStart{})
	require.True(t, lateInvoked)
}

func TestListenerCount_ReflectsLiveState(t *testing.T) {
	b := New()

	require.Equal(t, 0, b.ListenerCount(KindAppStop))

	s1 := b.Subscribe(KindAppStop, func(Event) {})
	s2 := b.Subscribe(KindAppStop, func(Event) {})
	require.Equal(t, 2, b.ListenerCount(KindAppStop))

	b.Unsubscribe(s1)
	require.Equal(t, 1, b.ListenerCount(KindAppStop))
	b.Unsubscribe(s2)
	require.Equal(t, 0, b.ListenerCount(KindAppStop))
}

func TestRegisteredKinds_SortedAndLive(t *testing.T) {
	b := New()

	require.Empty(t, b.RegisteredKinds())

	b.Subscribe(KindTermExit, func(Event) {})
	sub := b.Subscribe(KindAppStart, func(Event) {})
	b.Subscribe(KindAppError, func(Event) {})

	require.Equal(t, []Kind{KindAppError, KindAppStart, KindTermExit}, b.RegisteredKinds())

	b.Unsubscribe(sub)
	require.Equal(t, []Kind{KindAppError, KindTermExit}, b.RegisteredKinds())
}

func TestReset_ClearsAllKindsAndIsIdempotent(t *testing.T) {
	b := New()

	invoked := false
	b.Subscribe(KindAppStart, func(Event) { invoked = true })
	b.Subscribe(KindTermExit, func(Event) {})

	b.Reset()
	b.Reset()

	require.Empty(t, b.RegisteredKinds())
	b.Publish(AppStart{})
	require.False(t, invoked)
}

func TestSubscribe_CeilingDoesNotRejectRegistrations(t *testing.T) {
	b := NewWithLimit(3)

	count := 0
	for i := 0; i < 5; i++ {
		b.Subscribe(KindTermKey, func(Event) { count++ })
	}

	// Exceeding the ceiling only warns; all registrations stay live.
	require.Equal(t, 5, b.ListenerCount(KindTermKey))
	b.Publish(TermKey{Name: "k"})
	require.Equal(t, 5, count)
}

type recordingObserver struct {
	calls []string
}

func (o *recordingObserver) BeforeDispatch(e Event, listeners int) {
	o.calls = append(o.calls, "before")
}

func (o *recordingObserver) AfterDispatch(e Event, listeners int) {
	o.calls = append(o.calls, "after")
}

func TestObserver_WrapsFanOut(t *testing.T) {
	b := New()
	obs := &recordingObserver{}
	b.AddObserver(obs)

	b.Subscribe(KindAppStart, func(Event) {
		obs.calls = append(obs.calls, "listener")
	})
	b.Publish(AppStart{})

	require.Equal(t, []string{"before", "listener", "after"}, obs.calls)
}

func TestObserver_NilIsIgnored(t *testing.T) {
	b := New()
	b.AddObserver(nil)

	require.NotPanics(t, func() { b.Publish(AppStart{}) })
}

func TestPublish_EveryListenerExactlyOnceInOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		b := New()
		n := rapid.IntRange(0, 64).Draw(rt, "listeners")

		var order []int
		for i := 0; i < n; i++ {
			i := i
			b.Subscribe(KindTermResize, func(e Event) {
				resize := e.(TermResize)
				require.Equal(rt, 132, resize.Width)
				require.Equal(rt, 43, resize.Height)
				order = append(order, i)
			})
		}

		delivered := b.Publish(TermResize{Width: 132, Height: 43})

		require.Equal(rt, n > 0, delivered)
		require.Len(rt, order, n)
		for i, v := range order {
			require.Equal(rt, i, v)
		}
	})
}
