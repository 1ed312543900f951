// Package budget splits a token ceiling across file categories.
//
// Each category gets a base budget proportional to its weight. Categories
// run in priority order; whatever a category leaves unused joins a spillover
// pool, and each following category may draw half of that pool on top of its
// base. The final category draws the whole pool.
package budget
