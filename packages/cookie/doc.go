// Package cookie implements the persistent cookie jar used by send.
//
// Cookies are keyed by (domain, name). The jar file uses the Netscape format
// understood by curl and browsers:
//
//	example.com	FALSE	/	TRUE	0	session	abc123
//
// Short "domain<TAB>name<TAB>value" lines are accepted when reading.
package cookie
