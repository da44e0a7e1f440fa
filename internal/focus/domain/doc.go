// Package domain holds the value types shared by the desktop publisher and
// the browser enforcement agent. Nothing here performs I/O.
package domain
