// Package surface serializes access to the single visible browser tab.
//
// Every evaluation task shares one headful browser window. Actions that
// need the tab in the foreground (opening a page, driving the mod-log
// filter widget) must hold the Lock. All other navigation runs unlocked.
package surface
