// Package store runs queries built with package query against SQLite.
//
// Rows are read into Records keyed by output alias, so the id column of a
// list query is always available under "_id" and the section index under
// "sql_section_index". Mappers turn Records into domain structs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Placeholders ("?") left in a rendered query are bound from the args passed
// to Query; every other literal is already escaped into the SQL text.
package store
