// Package formats provides parsers for the array files the explorer reads.
//
// Latent means, log-variances and labels are stored as NumPy .npy files
// (see npy.go).
package formats
