// Package ciutil detects the execution environment (CI provider or local)
// and masks sensitive environment values before they are logged.
package ciutil
