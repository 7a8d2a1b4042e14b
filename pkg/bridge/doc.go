// Package bridge attaches reactive sources to the lifetime of a UI component.
//
// A Session stands for one mounted component. Attach functions subscribe to a
// source and keep the component's local copy of the latest value; disposing
// the session releases every subscription it owns:
//
//	sess := bridge.NewSession(rt, bridge.WithName("CartBadge"))
//	defer sess.Dispose() // unmount
//
//	count := bridge.AttachCell(sess, counter, func(int) { rerender() })
//	total := bridge.AttachStore[float64](sess, "cart-total", func(float64) { rerender() })
//
//	render(count.Value(), total.Value())
//
// # Binding Lifecycle
//
// A Binding moves from Idle to Subscribed when it attaches and to Released
// when it is released or its session is disposed. Rebind swaps the source:
// the old subscription is released before the new one is made, and nothing
// happens if the source identity is unchanged. Values arriving after release
// are dropped; a binding never writes local state once released.
//
// AttachStore looks its key up once. If the store is missing, the binding is
// returned already released with no value, and a warning is logged. A later
// attach is needed to pick the store up.
//
// # Fetches
//
// AttachFetch resolves a service strictly and runs one of its methods in the
// background, exposing loading and error state as a reactive FetchState:
//
//	f := bridge.AttachFetch(sess, "todos", func(ctx context.Context, s *TodoService) error {
//	    return s.Load(ctx)
//	}, bridge.WithErrorMapper(toUIError))
//
//	st := f.State() // {Phase: Loading, Loading: true}
//
// Closures cannot be compared, so a method that captures values should
// declare them with WithDeps. Update then re-runs only when the key, the
// resolved service or the deps change:
//
//	f.Update("users", loadUser(id), bridge.WithDeps(id))
//
// Without WithDeps, every Update given a method re-runs. Results that arrive
// after the session was disposed, or after a newer fetch started, are
// discarded. Mapped errors are raised to the session's error boundary.
package bridge
