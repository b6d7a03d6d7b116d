package main

import (
	"os"
)

func main() {
	if err := newChatCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
