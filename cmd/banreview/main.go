// Package main provides the entry point for the banreview CLI.
//
// banreview walks the ban list of a community in a real browser session,
// looks at what every user banned under the language rule actually wrote,
// and recommends unbans where the evidence does not support the ban.
//
// Usage:
//
//	banreview review
//	banreview review --community nederlands --concurrency 10
//	banreview history
//
// See --help for all available options.
package main

// main is the entry point for banreview.
func main() {
	Execute()
}
