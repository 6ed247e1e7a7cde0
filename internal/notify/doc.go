// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

/*
Package notify delivers sync run summaries to chat channels.

The only channel is the Telegram Bot API. TelegramNotifier satisfies the
sync.Notifier interface and posts one HTML message per finished run:

	n, err := notify.NewTelegramNotifier(&cfg.Notify)
	if err != nil {
		return err
	}
	manager := sync.NewManager(cfg, store, provider, tracker, sync.WithNotifier(n))

Delivery failures are returned to the caller, which logs them. They never
change the outcome of the run.
*/
package notify
