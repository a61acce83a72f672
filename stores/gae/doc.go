//go:build !wasm
// +build !wasm

// Package gae provides a Google Cloud Datastore implementation of the
// auth.Directory contract, for deployments on Google Cloud Platform.
//
// # Datastore Kinds
//
// The package uses the following kinds:
//   - User: user records, keyed by user id
//   - EmailIndex: claims a local identifier, keyed by email
//   - ProviderLink: claims a (provider, subject id) pair, keyed by
//     "provider|subject"
//
// Creates run inside a Datastore transaction that reads the index keys before
// writing, so two concurrent creates for the same identifier resolve to one
// winner and one auth.ErrDuplicateIdentifier.
//
// # Namespacing
//
// All operations accept a namespace at construction time for multi-tenant
// isolation:
//
//	client, _ := datastore.NewClient(ctx, projectID)
//	dir := gae.NewDirectory(client, "") // default namespace
package gae
