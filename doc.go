// Package platform implements a multi-tenant memory accounting layer in
// front of a per-arena native allocator.
//
// # Overview
//
// A process hosting several logical clients (buckets, tenants) registers
// each one to obtain a ClientHandle backed by its own native arena, then
// routes allocation traffic to it through an explicit Binding:
//
//	f := platform.NewFacade(backend.New())
//	h, err := f.RegisterClient(true)
//	b := f.NewBinding()
//
//	if err := b.SwitchToClient(h); err != nil { ... }
//	p := f.Alloc(b, 4096)
//	f.Free(b, p)
//	b.SwitchFromClient()
//
//	precise := f.GetPreciseAllocated(h)
//	estimate := f.GetEstimatedAllocated(h)
//
// # Concurrency
//
// Allocation, free and estimate-readout paths never block: they perform
// relaxed atomic operations on per-shard or per-client cache lines and a
// call into the back-end. Only RegisterClient, UnregisterClient and
// UnregisterCurrentClient take the registry's write lock, and Snapshot takes
// its read lock while copying slot occupancy; that lock guards the client
// slot table alone, and no allocation path ever consults it.
//
// # Back-ends
//
// internal/backend defines the Backend contract this package delegates to.
// Built with `-tags jemalloc` and linked against libjemalloc, it binds the
// real allocator; built without that tag, it falls back to a pure-Go
// chunked bump arena, useful for tests and environments without jemalloc
// available.
package platform
