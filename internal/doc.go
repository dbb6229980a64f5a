// Package internal holds helpers shared by authcore packages: token and
// device identifier generation plus user-agent classification. Nothing in
// here is part of the public API.
package internal
