// Package dialogue drives the guided conversations that mutate the
// association store. Each user has at most one open session; every inbound
// text advances it by exactly one step and yields one Reply.
//
// The engine has no transport dependency: callers feed it command names,
// arguments and free text, and render the returned messages and options.
package dialogue
