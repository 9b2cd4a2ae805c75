// Package child is the isolated realm that owns a foreign module.
//
// A Runtime is parameterized only through its location, a URL whose query
// carries the loader path, the module path, the instance identifier and an
// optional debug mode. It builds its own document and rendering surface,
// runs a lifecycle manager over them and talks to the host exclusively
// through a protocol.ChildPort: enqueue-outbound commands feed the local
// queue, inbound module events are forwarded as child-event, and the
// initialization outcome is reported as child-ready or child-error.
package child
