// Package ssh reaches cluster nodes over SSH. Commands run in sessions and
// files move over SFTP on the same connection.
//
// Host key verification is disabled unless HostKeyCallback is set: nodes of
// a throwaway cluster get fresh host keys on every bring-up.
package ssh
