package store

import _ "embed"

// Schema is the directory DDL. Deployments apply it out of band; integration
// tests apply it directly to throwaway containers.
//
//go:embed schema.sql
var Schema string
