package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/restkeep/stockfeed/internal/config"
	"github.com/restkeep/stockfeed/internal/core/domain"
	"github.com/restkeep/stockfeed/internal/core/service"
	"github.com/restkeep/stockfeed/internal/port"
)

// Run wires the session manager, feed and submitter to the program and
// blocks until the user quits. Service callbacks arrive on their own
// goroutines and enter the model only as messages.
func Run(cfg *config.Config, provider port.IdentityProvider, store port.DocumentStore) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	collection := cfg.CollectionPath()

	var p *tea.Program

	feed := service.NewFeedService(store, collection,
		func(items []domain.InventoryItem) { p.Send(SnapshotMsg{Items: items}) },
		func(err error) { p.Send(ErrMsg{Err: err}) },
	)

	// One live subscription at a time: a session change tears down the old
	// one before opening the next, so re-auth cycles cannot accumulate
	// duplicate subscriptions.
	var mu sync.Mutex
	var feedUnsub port.Unsubscribe

	sessionMgr := service.NewSessionManager(provider, cfg.AuthToken, service.SessionEvents{
		OnChange: func(s domain.Session) {
			p.Send(SessionChangedMsg{Session: s})

			mu.Lock()
			if feedUnsub != nil {
				feedUnsub()
				feedUnsub = nil
			}
			unsub, err := feed.Subscribe(s)
			if err == nil {
				feedUnsub = unsub
			}
			mu.Unlock()

			if err != nil {
				p.Send(ErrMsg{Err: err})
			}
		},
		OnError:   func(err error) { p.Send(ErrMsg{Err: err}) },
		OnSettled: func() { p.Send(SettledMsg{}) },
	})

	submitter := service.NewSubmitter(store, sessionMgr, collection)
	p = tea.NewProgram(NewApp(submitter), tea.WithAltScreen())

	// Start blocks on the first Send until the program loop is running.
	stopCh := make(chan port.Unsubscribe, 1)
	go func() { stopCh <- sessionMgr.Start(ctx) }()

	_, err := p.Run()

	cancel()
	if stop := <-stopCh; stop != nil {
		stop()
	}
	mu.Lock()
	if feedUnsub != nil {
		feedUnsub()
	}
	mu.Unlock()

	return err
}
