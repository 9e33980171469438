// Package extract turns rendered pages into evidence and ban records.
//
// Pages are captured as HTML from a browser.Page, parsed with
// golang.org/x/net/html and queried with goquery. A page that lacks the
// expected structure yields no records rather than an error: the site
// renders empty results as missing elements, and the evaluator copes
// with empty evidence.
package extract
