// Package eventloop provides the serial executor the notification channel runs on.
//
// Every piece of client state (the live transport session, the reconnect
// timer, the attempt counter, the push registration state) is touched only
// from tasks executed by a single Loop. Transport callbacks, timer expirations
// and calls from the host application are all posted as tasks and each task
// runs to completion before the next one starts, so the components need no
// locks of their own and callbacks fired during teardown cannot re-enter the
// code that triggered them.
//
// # Building blocks
//
//   - Loop: an unbounded FIFO of tasks drained by one goroutine. Post never
//     blocks, so tasks may post further tasks.
//   - Timer: a time.AfterFunc whose callback is posted to the loop and
//     re-checks cancellation there; once Stop returns, the callback never runs.
//   - Slot: holds at most one pending Timer. Schedule while a timer is pending
//     is a no-op, which is how retry requests are coalesced.
//   - Future / Go: run blocking work (HTTP calls, storage reads) on its own
//     goroutine and deliver the result back as a loop task.
//
// # Usage
//
//	loop := eventloop.New()
//	defer loop.Close()
//
//	retry := eventloop.NewSlot(loop)
//	loop.Post(func() {
//	    retry.Schedule(3*time.Second, reconnect)
//	    retry.Schedule(time.Second, reconnect) // no-op, already pending
//	})
//
//	eventloop.Go(loop, ctx, register, func(res Result, err error) {
//	    // runs on the loop
//	})
//
// Timer and Slot methods must be called from loop tasks.
package eventloop
