// Package core contains the canonical order ingestion domain: order records,
// notification and queue message shapes, store contracts, and the shared
// error envelope. Workers, stores, and transports depend on this package;
// core must not depend on provider-specific or transport-specific adapters.
package core
