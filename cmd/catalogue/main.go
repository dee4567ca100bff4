// Command catalogue is the operator CLI for the blog catalogue.
//
// Usage:
//
//	go run ./cmd/catalogue validate -p data/posts.json
//	go run ./cmd/catalogue search "json security" -p data/posts.json
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
