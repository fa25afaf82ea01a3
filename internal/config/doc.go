// Package config defines the bring-up configuration: the cluster's nodes,
// how to reach the management plane and the nodes, and what to configure
// and start.
//
// Files are YAML or TOML, chosen by extension. [LoadFile] applies defaults
// (some of them taken from BRINGUP_* environment variables, see
// [LoadTimeouts]) and validates the result. Secrets never come from the file.
package config
