// Package docker reaches cluster nodes that run as containers on a Docker
// host: commands go through exec and files through the archive API.
package docker
