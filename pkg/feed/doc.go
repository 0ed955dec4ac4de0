// Package feed is the optimistic update engine behind every post surface.
//
// An Engine owns one scoped view of the post collection (the whole feed, a
// single author's posts, or one post) and publishes it through reactive
// cells. Like toggles follow the optimistic protocol:
//
//  1. snapshot the affected post with a deep copy
//  2. apply the expected outcome locally and publish it immediately
//  3. issue the gateway call in the background
//  4. on success, re-fetch the post and adopt the server's version
//  5. on failure, restore the snapshot and surface the error
//
// Comments and post creation carry no local guess: they mark pending state,
// wait for the server, and pick the result up by re-fetch (comments) or by
// inserting the returned post (creation).
//
// Each post accepts at most one in-flight like toggle and one in-flight
// comment at a time; a second attempt while one is pending is refused, not
// queued. Every accepted mutation bumps a per-post attempt counter, and a
// rollback or reconciliation that arrives after a newer attempt started is
// discarded rather than applied over fresher state.
//
// Mutation methods return immediately with whether the attempt was
// accepted. Post creation is a collection-scope operation; a single-post
// engine refuses it.
//
// Quiesce blocks until all in-flight background work settles. Close is the
// teardown path: it refuses all further operations, then quiesces, so a
// surface that closed its engine never sees another cell update.
package feed
