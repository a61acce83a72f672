//go:build !wasm
// +build !wasm

// Package gorm provides a GORM-based implementation of the auth.Directory
// contract. It works with any database GORM supports (PostgreSQL, MySQL,
// SQLite, ...) and is the implementation to use for production deployments.
//
// # Database Schema
//
// The package auto-migrates two tables:
//   - users: one row per user (email carries a unique index)
//   - provider_links: (provider, subject_id) composite primary key pointing
//     at a user, which is what makes find-or-create race-safe
//
// # Usage
//
//	db, _ := gorm.Open(sqlite.Open(path), &gorm.Config{TranslateError: true})
//	gormstore.AutoMigrate(db)
//	dir := gormstore.NewDirectory(db)
//
// TranslateError should be enabled so unique-index violations surface as
// gorm.ErrDuplicatedKey; the directory also recognizes the common drivers'
// raw duplicate-key messages as a fallback.
package gorm
