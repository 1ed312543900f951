// Package bundle assembles a token-bounded, redacted context bundle for a
// project.
//
// Build runs one pass over seven file categories in priority order. Each
// category's candidates go through the same admission path: sensitive path
// check, project boundary check (explicit paths excepted), load, redact,
// then greedy admission against the category's share of the token budget.
// Discovered dependencies and dependents that resolve outside the project
// are dropped without a record; only explicit paths can use AllowExternal.
//
// The editing session, uncommitted changes and test or type lookups come
// from collaborators behind the SessionSource, ChangeSource and FileFinder
// interfaces.
package bundle
