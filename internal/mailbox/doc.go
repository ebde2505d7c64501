// Package mailbox implements the IMAP session and the message body
// pipeline: fetch, MIME resolution, HTML-to-text conversion, and text
// normalization.
//
// A Session wraps one authenticated IMAP connection with serialized
// mailbox access, a per-operation timeout, and a bounded-time teardown that
// force-terminates connections hanging on logout. ResolveText and
// Normalize are pure functions over fetched messages: resolution
// prefers a plain-text part, converts HTML as a fallback, and degrades
// to an empty string rather than failing on odd structures.
package mailbox
