// Package imports builds an approximate import graph from source text.
//
// Extraction is regex based and covers ES modules, CommonJS require,
// CSS/SCSS @import and @use, C #include "..." and Python relative imports.
// It is a heuristic: imports built from expressions, or spelled in ways the
// patterns do not cover, are missed.
//
// Only first-order edges are computed. GetDependencies answers "what does
// this file import", and an Index built once per run answers "who imports
// these files" with map lookups instead of a project scan per query.
package imports
