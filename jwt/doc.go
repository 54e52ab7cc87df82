// Package jwt signs and verifies the identity tokens issued by mailauth.
package jwt
