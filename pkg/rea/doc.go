// Package rea provides the reactive cell at the core of reaxar.
//
// A Cell holds exactly one value. Subscribing to a cell immediately replays
// the current value to the new subscriber, then forwards every later value in
// the order it was set:
//
//	count := rea.NewCell(0)
//	sub := count.Subscribe(func(n int) { fmt.Println("count:", n) }) // count: 0
//	count.Set(5)                                                     // count: 5
//	sub.Unsubscribe()
//	count.Set(6)                                                     // nothing
//
// # Streams
//
// Stream[T] is the read-only side of a cell. Derived streams are evaluated
// lazily, once per subscriber:
//
//	labels := rea.Derive(count, func(n, i int) string {
//	    return fmt.Sprintf("#%d: %d", i, n)
//	})
//	evens := count.Pipe(rea.Filter(func(n int) bool { return n%2 == 0 }))
//
// Subject[T] is a stream without replay; subscribers see only values emitted
// after they attached. Of builds a finite stream that emits its values
// synchronously on every subscribe.
//
// # Notification Semantics
//
// Set notifies synchronously on the calling goroutine, in attachment order,
// before it returns. There is no batching and no deduplication: setting the
// same value twice notifies twice. A subscriber that sets the cell it observes
// recurses into a nested notification; nesting deeper than MaxNotifyDepth is
// cut off and reported on the cell's logger.
//
// # Thread Safety
//
// Cells, subjects and subscriptions are safe for concurrent use. Notification
// passes on one cell are serialized: a Set from another goroutine waits until
// the running pass, including its nested Sets, has finished. Callbacks run
// without the value lock held, so they may freely call back into the cell on
// their own goroutine.
package rea
