// Package node defines how the bring-up reaches cluster nodes: running shell
// commands and reading or writing files. Implementations live in the docker
// and ssh platform packages.
package node
