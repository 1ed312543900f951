// Package finders locates test and type-definition files related to a set
// of source files by naming convention. Both finders implement
// bundle.FileFinder and only return regular files that exist.
package finders
