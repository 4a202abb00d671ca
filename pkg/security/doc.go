// Package security is the parent of the relay's security packages. The auth
// subpackage checks request tokens; secrets and tls supply credentials and
// the HTTPS listener.
package security
