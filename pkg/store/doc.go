// Package store provides registered reactive stores with reset-to-initial.
//
// A Store wraps a rea.Cell and remembers the value it was created with:
//
//	stores := store.NewRegistry()
//	cart := store.Create(stores, []Item{}, "cart")
//
//	cart.Set(append(cart.Get(), item))
//	cart.Reset() // back to []Item{}, subscribers are notified
//
// Create registers the store under its key as part of construction; New
// builds a local store that is never registered. Registered stores are kept
// in the registry through the type-erased Entry interface, and Lookup
// recovers the typed store:
//
//	cart, err := store.Lookup[[]Item](stores, "cart")
package store
