// Package document reads and writes the file formats accepted by the
// duplicate checker: markdown, plain text, Word (.docx), CSV, Excel (.xlsx)
// and HTML.
//
// The format is chosen from the file extension. ReadText flattens any
// supported format into the plain text the sentence splitter consumes;
// ReadTable and ReadWorkbook keep the row structure of tabular formats.
//
// Writers never replace an existing file unless asked to. The check is done
// with O_EXCL, so two concurrent writers cannot both succeed.
package document
