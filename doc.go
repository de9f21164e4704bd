// Package docpager provides cursor-based pagination over document stores.
//
// Overview
//
// A page is requested with a filter, a sort specification and a limit. The
// engine appends an ascending order on the unique document id as the final
// tie-breaker and encodes the position of the last returned document into an
// opaque cursor. Feeding the cursor back resumes the traversal right after that
// document, without duplicates or gaps, as long as the sort keys and ids of the
// traversed documents are not modified in between.
//
// Key concepts
//   - Store: the document store contract (memstore and gormstore implement it).
//   - Filter: a store-agnostic predicate tree built with Eq, Gt, In, Match, And, Or...
//   - Sort: ordered list of SortField with explicit directions.
//   - Codec: serializes cursors with one of the reversible transforms (Mode).
//   - Pager: composes filter, sort and cursor into a query and builds the next cursor.
package docpager
