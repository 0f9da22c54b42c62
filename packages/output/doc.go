// Package output renders validation and listing results for the console.
package output
