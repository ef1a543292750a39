// Package memory provides in-process implementations of the store interfaces.
// They honor the same conditional-write contracts as the PostgreSQL and Redis
// stores and back the service tests and single-process tooling.
package memory
