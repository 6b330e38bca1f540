// Package platform holds the OS-facing collaborators of the dispatcher:
// screen interactivity probes and the hook that surfaces the ringing screen
// when the display is off.
package platform
