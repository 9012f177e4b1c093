// Package notifytest runs an in-process notification backend for tests.
//
// Server speaks the same protocol the client expects: a websocket endpoint
// at the socket path, the long-polling variant of the same path, and the
// push registration endpoint under the API prefix.
//
//	srv := notifytest.NewServer(t)
//	l := notifykit.New(notifykit.WithBaseURL(srv.URL()), notifykit.WithAPIBase(srv.APIBase()))
//	...
//	require.Eventually(t, func() bool { return srv.Connections() == 1 }, time.Second, 10*time.Millisecond)
//	srv.Push(transport.EventNotifyMessage, map[string]any{"chatId": 7, "message": map[string]any{"content": "hi"}})
//
// Handshakes can be rejected with RejectHandshakes, registration responses
// programmed with QueueRegisterStatus, and live links dropped with
// DisconnectAll.
package notifytest
