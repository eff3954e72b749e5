//go:build windows

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
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-c:
		return fmt.Errorf("received signal %s", sig)
	case <-cancel:
		return errors.New("canceled")
	}
}
