// Package users holds the in-memory user registry behind the SOAP service.
//
// The Store is owned by whoever constructs it and is passed explicitly to the
// operation handlers. A single RWMutex guards reads and writes, so the
// username uniqueness check and the insert that follows it happen atomically.
//
// Records are only ever appended. Nothing is persisted: a restart resets the
// store to its seed.
package users
