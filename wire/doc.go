// Package wire holds the length-prefixed binary primitives shared by the
// request-token and property-bag codecs.
//
// Integers are little-endian, booleans take one byte and strings are UTF-8
// bytes preceded by their byte length as an unsigned 7-bit varint. This is
// the layout produced by .NET's BinaryWriter, so blobs written by older
// deployments stay readable.
package wire
