// Package internal holds helpers shared by the mailauth engine that are
// not part of the public API.
package internal
