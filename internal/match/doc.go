// Package match provides string normalization, edit-distance similarity,
// word-overlap scoring, abbreviation expansion, and the composite matcher
// that every other import stage uses to compare headers, field names,
// sheet names, and record names.
//
// Key functions:
//   - Normalize: case, separator, and accent insensitive canonical form
//   - Levenshtein / LevenshteinSimilarity: edit distance and its 0-1 similarity
//   - FuzzyMatch: 0-100 score (exact 100, containment 85-95, otherwise <= 80)
//   - WordOverlap: Jaccard similarity over word sets
//   - Expand: alternate surface forms from the abbreviation table
//   - CompositeMatch: best of exact, alias, fuzzy and word-overlap strategies
//
// All scores are deterministic; equal inputs always yield equal scores.
package match
