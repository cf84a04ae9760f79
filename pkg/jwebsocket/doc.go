// Package jwebsocket is the default transport.Transport implementation,
// backed by github.com/gorilla/websocket. It owns exactly one connection to
// one URL, with a read pump and a write-queue goroutine, the same split the
// reference Matter transports use between an accept loop and a per-connection
// read loop — adapted here to a single outbound client connection instead of
// a listener.
package jwebsocket
