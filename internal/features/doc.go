// Package features defines the closed set of image-build features a layer
// can declare.
//
// This package is data only: it knows how to name, order and serialize a
// feature, but not what a feature provides or requires (that is the depgraph
// package's job) nor how it is executed (the compile package). Both of those
// switch exhaustively over the concrete Data types declared here.
package features
