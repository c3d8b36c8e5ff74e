// Package dummydb provides in-memory repository implementations for tests.
package dummydb
