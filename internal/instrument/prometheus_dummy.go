//go:build !prometheus
// +build !prometheus

package instrument

// Init instrumentation
func Init() {}

// MessagesProcessed increments the counter for processed inbound messages
func MessagesProcessed(branch string) {}

// DecryptFailure increments the counter for decrypt/decode failures
func DecryptFailure(subprotocol string) {}

// LookupMiss increments the counter for creation message lookup misses
func LookupMiss() {}

// EventEmitted increments the counter for emitted events
func EventEmitted(name string) {}
