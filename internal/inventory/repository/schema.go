package repository

import (
	_ "embed"
)

// Schema is the DDL for every table the inventory service owns
//
//go:embed schema.sql
var Schema string
