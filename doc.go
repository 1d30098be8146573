// Package compactify provides a line-compaction formatter for indentation-sensitive
// source code. It shrinks the vertical footprint of a file by merging lines that
// carry nothing but structural punctuation, without changing what the code means.
//
// The formatter runs the following passes, each of which can be toggled:
//   - Closers: merge runs of lines holding only closing brackets, ':' and ','
//   - Openers: merge runs of lines holding only opening brackets
//   - Fuse: join a lone opener line onto a preceding line that ends in an opener
//   - Dedent: strip indentation left excessive by the merges
//
// For example:
//
//	x = (
//	    [
//	        {
//	            "a": 1,
//	        },
//	    ]
//	)
//
// becomes:
//
//	x = ([{
//	    "a": 1,
//	},])
//
// Every change is gated by a [Validator]. Input the validator rejects is returned
// untouched, and so is input whose compacted form the validator rejects. The
// formatter never returns an error.
//
// Basic usage:
//
//	// Using default configuration
//	formatted := compactify.Format(source)
//
//	// Checking Python with the interpreter's own parser
//	formatter := compactify.New(&compactify.Config{
//		Validator: compactify.Python{},
//	})
//	formatted := formatter.Format(source)
package compactify
