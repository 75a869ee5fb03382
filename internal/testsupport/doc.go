// Package testsupport provides shared helpers for package tests: temp-dir
// configs, store construction, and a scriptable backend client stub.
package testsupport
