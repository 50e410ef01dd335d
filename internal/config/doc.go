// Package config defines the veritls configuration model and its
// YAML loading, validation, and hot-reload machinery.
//
// Configuration files support ${VAR} and ${VAR:-default} environment
// substitution. The Watcher reloads the file on change with
// debouncing; invalid updates are rejected and the previous
// configuration stays in effect.
package config
