// Package mock provides test doubles for the ai capability interfaces.
// Mocks default to deterministic behavior and support func-field behavior
// injection plus call counting for assertions.
package mock
