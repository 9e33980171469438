// Package language classifies short texts by language.
//
// The review only needs to know whether a text is in the community's
// language. Detection is lenient on purpose: text that cannot be
// classified reliably, or a code that is not a known language, counts as
// the target language. A missed target-language text keeps a ban in place,
// a wrong guess toward the target language only suggests a second look.
package language
