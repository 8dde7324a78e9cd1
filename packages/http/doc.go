// Package http executes quartz requests.
//
// The standard client's redirect handling is disabled; Client.Do follows
// redirects itself so that every hop can be captured verbatim, feed the
// cookie jar, and count against the hop limit:
//
//	Prepared -> Sent -> (Redirect -> Sent)* -> Completed | Failed
package http
