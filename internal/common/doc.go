// Package common provides the small interfaces shared between repolock packages.
//
// It exists so that the lock package can log through whatever the command
// wires in without importing the logger package itself.
//
// # Logger Interface
//
// Logger is the debug channel only (Info and Warning). logger.DefaultLogger
// satisfies it; OrNop substitutes a discarding implementation for nil.
//
//	type MyComponent struct {
//	    logger common.Logger
//	}
//
//	func NewMyComponent(l common.Logger) *MyComponent {
//	    return &MyComponent{logger: common.OrNop(l)}
//	}
//
// The package has no dependencies on other internal packages.
package common
