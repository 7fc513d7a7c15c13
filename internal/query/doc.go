// Package query builds SQL SELECT statements against a declared schema and
// fills in join clauses automatically.
//
// SCHEMA SETUP:
//
// Tables, columns and join edges are declared once on a Registry:
//
//	reg := query.NewRegistry()
//	song := reg.Declare("Song")
//	title := song.Column("title")
//	lead := reg.Declare("Lead")
//	reg.Join(lead.Column("song_id"), song.ID)
//	...
//	if err := reg.Finalize(); err != nil { ... }
//
// Computed columns that reference other tables are added in OnCreate hooks,
// which Finalize runs once every table exists. After Finalize the registry
// is frozen and may be shared by concurrent queries.
//
// JOIN RESOLUTION:
//
// Every column a query references (select list, predicate operands, GROUP BY,
// ORDER BY) contributes its tables. At render time each table is reached from
// the from table by, in order:
// 1. A join already present in the query
// 2. A direct edge
// 3. A direct edge from a table already joined
// 4. Exactly one bridging table adjacent to both ends
//
// No path fails with NO_JOIN_PATH; several bridges fail with
// AMBIGUOUS_JOIN_PATH and the query must join an intermediate table
// explicitly.
//
// RENDERING:
//
// Render is deterministic. Aliases that collide are suffixed 1, 2, ... in
// select order. String operands are escaped as SQL literals; the token "?"
// passes through for parameter binding.
package query
