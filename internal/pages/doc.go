// Package pages holds the presentation surfaces as headless view models.
//
// Each page owns the reactive cells a renderer would bind to and the intent
// methods user interaction invokes. Pages are assembled from their
// collaborators explicitly (gateway, session manager, toast notifier); none
// of them reach for globals, so tests drive them against the in-memory
// gateway exactly the way the CLI drives them against HTTP.
package pages
