//go:build unix

package main

import (
	"os"
	"os/signal"
	"syscall"
)

func notifySignals(ch chan<- os.Signal) {
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)
}

func isToggleSignal(sig os.Signal) bool { return sig == syscall.SIGUSR1 }
