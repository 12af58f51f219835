package config

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var (
	// reloadMu prevents concurrent reload attempts
	reloadMu sync.Mutex

	// signalMu protects signalChan, stopChan, and doneChan
	signalMu sync.Mutex

	// signalChan receives SIGHUP signals
	signalChan chan os.Signal

	// stopChan signals the handler goroutine to stop
	stopChan chan struct{}

	// doneChan is closed when the handler goroutine exits
	doneChan chan struct{}
)

// ReloadFunc receives the configuration in effect before and after a reload.
type ReloadFunc func(prev, next *Config)

// SetupSignalHandler starts a goroutine that reloads the config file on
// SIGHUP and passes the old and new configuration to onReload. Signals that
// arrive during a reload are ignored. Calling it again replaces the previous
// handler.
func SetupSignalHandler(onReload ReloadFunc) {
	signalMu.Lock()
	defer signalMu.Unlock()

	if stopChan != nil {
		close(stopChan)
		localDone := doneChan
		signalMu.Unlock()
		<-localDone
		signalMu.Lock()
	}

	signalChan = make(chan os.Signal, 1)
	stopChan = make(chan struct{})
	doneChan = make(chan struct{})

	localSignalChan := signalChan
	localStopChan := stopChan
	localDoneChan := doneChan

	signal.Notify(localSignalChan, syscall.SIGHUP)

	go func() {
		defer close(localDoneChan)
		for {
			select {
			case <-localSignalChan:
				if !reloadAndNotify(onReload) {
					slog.Debug("SIGHUP received during reload; ignoring")
				}
			case <-localStopChan:
				signal.Stop(localSignalChan)
				return
			}
		}
	}()
}

// reloadAndNotify reloads the config and calls onReload on success. It
// reports false without reloading when another reload is in progress.
func reloadAndNotify(onReload ReloadFunc) bool {
	if !reloadMu.TryLock() {
		return false
	}
	defer reloadMu.Unlock()

	slog.Info("received SIGHUP; reloading config")
	prev := Get()
	if err := Reload(); err != nil {
		return true
	}
	next := Get()
	if onReload != nil && prev != nil && next != nil {
		onReload(prev, next)
	}
	return true
}

// StopSignalHandler stops the signal handler goroutine and waits for it to exit.
func StopSignalHandler() {
	signalMu.Lock()

	if stopChan == nil {
		signalMu.Unlock()
		return
	}

	close(stopChan)
	stopChan = nil
	localDone := doneChan
	doneChan = nil
	signalMu.Unlock()

	// Wait for goroutine to finish outside of lock
	<-localDone
}
