// Package updatedocs edits the docstrings of Python source without disturbing anything else in the file.
//
// InsertDocstrings takes a map of symbol name to docstring text (typically produced by an LLM) and inserts or replaces the matching module, class, and function docstrings.
// StripDocstrings does the reverse. Both locate docstrings with package pysource and then edit the original text by line (ApplyLineEdits), so formatting, comments, and blank
// lines outside the edited docstrings are preserved byte-for-byte. Nothing here does I/O.
package updatedocs
