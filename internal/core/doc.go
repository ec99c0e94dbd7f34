// Package core orchestrates workbook imports.
//
// It is the layer the HTTP server and the CLI share. Neither talks to the
// pipeline packages directly.
//
// # Flow
//
//  1. [Service.Analyze] decodes an uploaded workbook, detects each sheet's
//     entity type, suggests column mappings and opens a session.
//  2. [Service.Validate] resolves the session's sheet configs (suggestions,
//     caller overrides or explicit configs) and validates them against a
//     snapshot of the store. It never writes.
//  3. [Service.RunImport] or [Service.StartImport] validates again and, if
//     the result can proceed, executes it inside one store transaction.
//     Background imports report through [Service.SubscribeProgress] and can
//     be stopped with [Service.CancelImport].
//
// Sessions expire after Options.SessionTTL. Finished background imports stay
// queryable for [ResultRetention].
//
// # Limits
//
// Only execution takes a slot from the [ImportLimiter]. Analysis and
// validation are pure computation over data already in memory.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Codes are shared with the issue codes of the validate package, so
// [LookupCode] gives the same guidance for a row issue.
package core
