// Package config provides the configuration of a ban review run.
// It defines the target community and policy, concurrency and pacing
// settings, and where session state and reports live on disk.
package config
