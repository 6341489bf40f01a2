// Package extract turns PDF files into ordered page text with a title.
//
// Extraction never fails past its boundary for a bad document: a file that
// cannot be opened or parsed yields a Document with no pages, titled with
// its filename, and the failure is logged. Only context cancellation is
// returned as an error.
package extract
