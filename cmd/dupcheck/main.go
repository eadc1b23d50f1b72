// Package main provides the entry point for the dupcheck CLI.
//
// dupcheck splits a document into sentences, asks a Dify workflow whether
// each sentence already exists in a knowledge base, and writes a markdown
// report of the duplicates it finds.
//
// Usage:
//
//	dupcheck check <document>
//	dupcheck serve
//
// See --help for all available options.
package main

// main is the entry point for dupcheck.
func main() {
	Execute()
}
