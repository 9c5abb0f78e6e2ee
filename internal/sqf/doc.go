// Package sqf holds the in-memory stop-and-frisk data model and the
// aggregate queries that run over it.
//
// The model has three levels:
//   - Record: one immutable stop event, built from a single raw row
//   - YearBucket: every Record of one calendar year, in ingestion order
//   - Database: year → YearBucket, the ingestion entry point and query surface
//
// A Database is filled once by Ingest and read afterwards. Queries only take
// the read lock, so they may run concurrently once ingestion is finished.
//
// Percentages are on a 0–100 scale except GenderBias, whose cells are half
// the within-race share (0–50). Numeric queries over a year without records
// return an error matching errors.ErrNoData rather than a bare zero.
package sqf
