// Command backdrop-dl is a terminal client for a running gallery server.
//
// Usage:
//
//	backdrop-dl list <category>             print the images of a category
//	backdrop-dl check <category>            lazy-load a category and report failures
//	backdrop-dl get <key> [--format tiff]   download one image
//
// The server address comes from --server or BACKDROP_SERVER (default
// http://localhost:8080). A .env file in the working directory is loaded
// first.
package main
