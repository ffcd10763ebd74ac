// Package main is the entry point for the teapot server.
package main

func main() {
	Execute()
}
