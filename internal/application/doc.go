// Package application provides application initialization and dependency wiring.
// It turns a resolved record into the HTTP service: offline findings, live
// prober, handlers, router and server, keeping the main package focused on CLI
// parsing and orchestration.
package application
