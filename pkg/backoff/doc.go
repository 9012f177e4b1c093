// Package backoff computes retry delays for the notification channel.
//
// Two delay shapes are used by the client:
//
//   - NextDelay(attempt) for the connection layer, where the attempt counter is
//     owned by the caller and reset to zero on a successful connect.
//   - Grow(current) for the push registration loop, which carries its current
//     delay forward between attempts and resets it to the floor on success.
//
// Both are pure functions of the Policy; scheduling (and the guarantee that at
// most one retry timer is pending) lives in the eventloop package.
//
// # Usage
//
//	p := backoff.ConnectionPolicy()
//	p.NextDelay(1) // 3s
//	p.NextDelay(2) // 4.5s
//	p.NextDelay(9) // 30s (capped)
//
//	r := backoff.RegistrationPolicy()
//	d := r.Reset()  // 800ms
//	d = r.Grow(d)   // 1.28s
package backoff
