// Package browser provides the rendering capability the review runs on.
//
// The site is a client-rendered single page application behind a login,
// so every view is loaded in a real browser. The rest of banreview only
// depends on the Browser and Page interfaces defined here; Chrome is the
// chromedp-backed implementation and tests use hand-written fakes.
//
// # Shadow DOM
//
// Several controls (the mod-log username filter, the ban list pager) live
// inside web components. A ControlPath addresses them as a chain of CSS
// selectors where each selector after the first is resolved inside the
// shadow root of the element found by the previous one.
//
// # Sessions
//
// Session restores a saved cookie snapshot and falls back to an
// interactive login in the visible browser window when the snapshot is
// missing or expired.
package browser
