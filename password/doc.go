// Package password implements argon2id hashing and verification for the
// credential hashes returned by the user-lookup collaborator. Hashes use the
// PHC string format ($argon2id$v=19$m=...,t=...,p=...$salt$hash) so they can
// be produced and verified by other tooling.
package password
