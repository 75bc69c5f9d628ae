// Package resolver turns an environment snapshot into the immutable Record
// handed to the contract toolkit: compiler version, target network, deployer
// account, explorer verification settings and type-binding output. Every field
// has a deterministic fallback, so resolution cannot fail.
package resolver
