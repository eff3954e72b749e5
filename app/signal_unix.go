//go:build !windows

package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/opencorp/filing-gateway/watcher"

	"github.com/pkg/errors"
)

func interrupt(cancel <-chan struct{}, w *watcher.Watcher) error {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)
	for {
		select {
		case sig := <-c:
			switch sig {
			case syscall.SIGUSR1:
				w.Poke()
				continue
			case syscall.SIGUSR2:
				w.LogStats()
				continue
			default:
				return fmt.Errorf("received signal %s", sig)
			}
		case <-cancel:
			return errors.New("canceled")
		}
	}
}
