// Package notifykit keeps a device connected to the notification channel and
// turns inbound events into user alerts.
//
// A Listener owns one event loop, one transport connection, one credential
// watcher and one push registrar. Everything that mutates their state runs on
// the loop, so callbacks never race each other and Stop can cancel all timers
// synchronously.
//
// Basic usage:
//
//	l, err := notifykit.New(
//		notifykit.WithEndpoint("https://front-dev.agatha.org.cn", "/api/notify"),
//		notifykit.WithStore(credentials.NewMemoryStore("")),
//		notifykit.WithDispatcher(notifications.NewDispatcher(backend)),
//	)
//	if err != nil {
//		return err
//	}
//	if err := l.Start(ctx, nil); err != nil {
//		return err
//	}
//	defer l.Stop()
//
//	// After login:
//	_ = l.SetCredentialAndReconnect(token)
//
// Lifecycle inputs from the host re-arm reconnection and registration:
//
//	l.AppForeground()
//	l.AppBackground()
//	l.NetworkRestored()
//
// Host messages posted by an embedded login view are bridged with
// HandleHostMessage:
//
//	l.HandleHostMessage([]byte(`{"type":"minechat-token","token":"..."}`))
//
// Status reports the channel state for display:
//
//	fmt.Println(l.Status().Text()) // 通知:已连接
package notifykit
