// Package app contains the application logic behind the command line. It
// wires declaration loading, graph resolution and layer compilation together
// and is decoupled from any specific entrypoint.
package app
